package util

import "errors"

var (
	ErrInvalidSlideCount = errors.New("total slides must be positive")
	ErrCourseNotFound    = errors.New("course progress not found")
)
