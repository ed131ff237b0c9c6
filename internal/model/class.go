package model

// swagger:model Class
type Class struct {
	BaseModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	LecturerID  uint   `gorm:"index;type:bigint unsigned" json:"lecturerId"`
	Archived    bool   `gorm:"default:false" json:"archived"`
}

func (Class) TableName() string {
	return "classes"
}

// ClassMember links a student to a class. Eligibility checks for exam
// attempts resolve through this table.
type ClassMember struct {
	BaseModel
	ClassID   uint `gorm:"index;uniqueIndex:idx_class_student;type:bigint unsigned" json:"classId"`
	StudentID uint `gorm:"index;uniqueIndex:idx_class_student;type:bigint unsigned" json:"studentId"`
}

func (ClassMember) TableName() string {
	return "class_members"
}
