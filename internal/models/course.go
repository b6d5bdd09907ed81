package models

// Course is long-lived reference data: a subject an assistant may tutor.
type Course struct {
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// CourseCapability is a many-to-many row: an assistant may tutor a course
// on any shift, independent of which specific shifts they are allocated to.
type CourseCapability struct {
	AssistantUsername string `db:"assistant_username" json:"assistant_username"`
	CourseCode         string `db:"course_code" json:"course_code"`
}
