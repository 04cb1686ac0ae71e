package ratelimit

import "time"

// Bucket is a named fixed-window limit.
type Bucket struct {
	Name   string
	Window time.Duration
	Max    int
}

// The authoritative bucket table. Buckets are declared statically; routes
// reference them by value.
var (
	Auth         = Bucket{Name: "auth", Window: 15 * time.Minute, Max: 5}
	Export       = Bucket{Name: "export", Window: time.Minute, Max: 10}
	Search       = Bucket{Name: "search", Window: time.Minute, Max: 100}
	API          = Bucket{Name: "api", Window: time.Hour, Max: 1000}
	Upload       = Bucket{Name: "upload", Window: time.Minute, Max: 20}
	FileUpload   = Bucket{Name: "file_upload", Window: time.Minute, Max: 10}
	Update       = Bucket{Name: "update", Window: time.Minute, Max: 60}
	Delete       = Bucket{Name: "delete", Window: time.Minute, Max: 10}
	Notification = Bucket{Name: "notification", Window: time.Minute, Max: 100}

	// Per-type creation buckets. Workspace creation is the most expensive
	// (it seeds memberships and defaults), so it gets the tightest limit.
	CreateWorkspace = Bucket{Name: "create_workspace", Window: time.Minute, Max: 3}
	CreateDocument  = Bucket{Name: "create_document", Window: time.Minute, Max: 30}
	CreateTask      = Bucket{Name: "create_task", Window: time.Minute, Max: 30}
	CreateProject   = Bucket{Name: "create_project", Window: time.Minute, Max: 10}
	CreateTeam      = Bucket{Name: "create_team", Window: time.Minute, Max: 10}
	CreateNote      = Bucket{Name: "create_note", Window: time.Minute, Max: 30}
	CreateEvent     = Bucket{Name: "create_event", Window: time.Minute, Max: 20}
	CreateTemplate  = Bucket{Name: "create_template", Window: time.Minute, Max: 10}
)
