package model

// Connection records that Follower follows Practicer.
//
// PracticerID/FollowerID are pointers because deleting a musician nulls them
// out instead of deleting the connection. EndedOn is nil while the follow is
// active; once set the row is terminal and a re-follow creates a new row.
type Connection struct {
	ID          int64
	PracticerID *int64
	FollowerID  *int64
	CreatedOn   Date
	EndedOn     *Date
}

// Active reports whether the follow has not been ended.
func (c *Connection) Active() bool {
	return c.EndedOn == nil
}
