package model

import "gorm.io/gorm"

// Department 部门表 — 对应 departments（花名册只读数据，快照范围按部门划分）
type Department struct {
	DepartmentID   string `gorm:"type:varchar(36);primaryKey"  json:"department_id"`
	DepartmentName string `gorm:"type:varchar(100);not null"   json:"department_name"`
	DepartmentCode string `gorm:"type:varchar(50);uniqueIndex" json:"department_code"`
	IsActive       bool   `gorm:"not null;default:true"        json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

func (d *Department) BeforeCreate(_ *gorm.DB) error {
	ensureID(&d.DepartmentID)
	return nil
}

// Employee 员工表 — 对应 employees（花名册只读数据）
type Employee struct {
	EmployeeID      string  `gorm:"type:varchar(36);primaryKey"           json:"employee_id"`
	EmployeeNumber  string  `gorm:"type:varchar(20);not null;uniqueIndex" json:"employee_number"`
	Name            string  `gorm:"type:varchar(100);not null"            json:"name"`
	DepartmentID    *string `gorm:"type:varchar(36);index"                json:"department_id,omitempty"`
	HireDate        *string `gorm:"type:varchar(10)"                      json:"hire_date,omitempty"`        // yyyy-MM-dd
	TerminationDate *string `gorm:"type:varchar(10)"                      json:"termination_date,omitempty"` // yyyy-MM-dd
	SoftDeleteModel

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }

func (e *Employee) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EmployeeID)
	return nil
}

// EmployedOn 判断指定日期（yyyy-MM-dd）是否处于在职区间内
func (e *Employee) EmployedOn(date string) bool {
	if e.HireDate != nil && *e.HireDate != "" && date < *e.HireDate {
		return false
	}
	if e.TerminationDate != nil && *e.TerminationDate != "" && date > *e.TerminationDate {
		return false
	}
	return true
}
