package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-engine/backend/internal/dto"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

func setupTestAccessEventService(t *testing.T) (*testEnv, AccessEventService) {
	t.Helper()
	env := newTestEnv()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	return env, NewAccessEventService(env.repo, loc, 100, env.logger)
}

func TestAccessEventService_Import_Duplicates(t *testing.T) {
	env, svc := setupTestAccessEventService(t)

	resp, err := svc.ImportAccessEvents(context.Background(), &dto.ImportAccessEventsRequest{Events: []dto.AccessEventInput{
		{EmployeeNumber: testEmpNumber, EventDate: "20251103", EventTime: "090500"},
		{EmployeeNumber: testEmpNumber, EventDate: "20251103", EventTime: "182000"},
		{EmployeeNumber: testEmpNumber, EventDate: "20251103", EventTime: "090500"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Received)
	assert.EqualValues(t, 2, resp.Inserted)
	assert.EqualValues(t, 1, resp.Duplicates)
	assert.Len(t, env.events.events, 2)

	// 再次导入全部视为重复
	resp, err = svc.ImportAccessEvents(context.Background(), &dto.ImportAccessEventsRequest{Events: []dto.AccessEventInput{
		{EmployeeNumber: testEmpNumber, EventDate: "20251103", EventTime: "182000"},
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, resp.Inserted)
	assert.EqualValues(t, 1, resp.Duplicates)
}

func TestAccessEventService_Import_DerivesFromSourceTimestamp(t *testing.T) {
	env, svc := setupTestAccessEventService(t)
	ts := time.Date(2025, 11, 3, 1, 5, 0, 0, time.UTC) // 北京时间 09:05

	_, err := svc.ImportAccessEvents(context.Background(), &dto.ImportAccessEventsRequest{Events: []dto.AccessEventInput{
		{EmployeeNumber: testEmpNumber, SourceTimestamp: &ts},
	}})
	require.NoError(t, err)
	require.Len(t, env.events.events, 1)
	e := env.events.events[0]
	assert.Equal(t, "20251103", e.EventDate)
	assert.Equal(t, "090500", e.EventTime)
	assert.True(t, e.SourceTimestamp.Equal(ts))
}

func TestAccessEventService_Import_DerivesTimestamp(t *testing.T) {
	env, svc := setupTestAccessEventService(t)

	_, err := svc.ImportAccessEvents(context.Background(), &dto.ImportAccessEventsRequest{Events: []dto.AccessEventInput{
		{EmployeeNumber: testEmpNumber, EventDate: "20251103", EventTime: "090500"},
	}})
	require.NoError(t, err)
	require.Len(t, env.events.events, 1)
	assert.True(t, env.events.events[0].SourceTimestamp.Equal(time.Date(2025, 11, 3, 1, 5, 0, 0, time.UTC)))
}

func TestAccessEventService_Import_Invalid(t *testing.T) {
	env, svc := setupTestAccessEventService(t)

	cases := []dto.AccessEventInput{
		{EmployeeNumber: testEmpNumber, EventDate: "2025-11-03", EventTime: "090500"},
		{EmployeeNumber: testEmpNumber, EventDate: "20251131", EventTime: "090500"},
		{EmployeeNumber: testEmpNumber, EventDate: "20251103", EventTime: "9:05"},
		{EmployeeNumber: testEmpNumber, EventDate: "20251103", EventTime: "250000"},
		{EmployeeNumber: testEmpNumber},
	}
	for _, in := range cases {
		_, err := svc.ImportAccessEvents(context.Background(), &dto.ImportAccessEventsRequest{Events: []dto.AccessEventInput{
			{EmployeeNumber: testEmpNumber, EventDate: "20251104", EventTime: "090000"},
			in,
		}})
		assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindValidation), "输入: %+v", in)
	}
	assert.Empty(t, env.events.events, "任一事件无效时整批不写入")
}
