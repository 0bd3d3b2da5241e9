package courseRepo

import "coursebill/models"

// CourseRepository resolves courses for the access gate.
type CourseRepository interface {
	GetByID(id string) (*models.Course, error)
}
