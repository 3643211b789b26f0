package model

// Excerpt is a named practice target owned by a musician.
type Excerpt struct {
	ID         int64
	Name       string
	Done       bool
	MusicianID *int64 // nil once the owner is deleted
}

// Recording is one audio take of an excerpt. Audio is an opaque URL; the
// server never reads the audio bytes.
type Recording struct {
	ID        int64
	Audio     string
	ExcerptID *int64 // nil once the excerpt is deleted
	Date      Date
	Label     string
}

// Category labels goals, e.g. "intonation" or "rhythm".
type Category struct {
	ID    int64
	Label string
}

// Goal is a goal/action pair logged against a recording and a category.
type Goal struct {
	ID          int64
	RecordingID *int64
	CategoryID  *int64
	Goal        string
	Action      string
}

// Comment is an annotation on a recording written by a musician.
type Comment struct {
	ID          int64
	AuthorID    *int64
	RecordingID *int64
	Date        Date
	Content     string
}
