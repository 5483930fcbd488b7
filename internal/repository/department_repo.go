package repository

import (
	"context"

	"gorm.io/gorm"

	"attendance-engine/backend/internal/model"
)

// DepartmentRepository 部门数据访问接口（花名册只读）
type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Department, error)
	List(ctx context.Context) ([]model.Department, error)
}

// departmentRepo DepartmentRepository 的 GORM 实现
type departmentRepo struct {
	db *gorm.DB
}

// NewDepartmentRepo 创建 DepartmentRepository 实例
func NewDepartmentRepo(db *gorm.DB) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) GetByID(ctx context.Context, id string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).
		Where("department_id = ?", id).
		First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepo) List(ctx context.Context) ([]model.Department, error) {
	var depts []model.Department
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("department_name ASC").
		Find(&depts).Error
	return depts, err
}

// ── Employee ──

// EmployeeFilter 员工查询条件（字段为空表示不过滤）
type EmployeeFilter struct {
	EmployeeIDs     []string
	EmployeeNumbers []string
	DepartmentID    string
}

// EmployeeRepository 员工数据访问接口（花名册只读）
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*model.Employee, error)
	List(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error)
}

type employeeRepo struct {
	db *gorm.DB
}

// NewEmployeeRepo 创建 EmployeeRepository 实例
func NewEmployeeRepo(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) GetByID(ctx context.Context, id string) (*model.Employee, error) {
	var emp model.Employee
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", id).
		First(&emp).Error
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *employeeRepo) List(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error) {
	query := r.db.WithContext(ctx).Model(&model.Employee{})
	if filter.EmployeeIDs != nil {
		if len(filter.EmployeeIDs) == 0 {
			return nil, nil
		}
		query = query.Where("employee_id IN ?", filter.EmployeeIDs)
	}
	if filter.EmployeeNumbers != nil {
		if len(filter.EmployeeNumbers) == 0 {
			return nil, nil
		}
		query = query.Where("employee_number IN ?", filter.EmployeeNumbers)
	}
	if filter.DepartmentID != "" {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}

	var emps []model.Employee
	err := query.Order("employee_number ASC").Find(&emps).Error
	return emps, err
}
