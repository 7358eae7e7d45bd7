package domain

// LaunchTarget is a fully resolved destination the client can be started with.
type LaunchTarget struct {
	PlaceID       int64
	JobID         string
	PrivateServer bool
	AccessCode    string
	LinkCode      string
}

// LaunchRequest is everything the client launcher needs for one spawn.
type LaunchRequest struct {
	AccountID  AccountID
	Target     LaunchTarget
	Ticket     string
	Token      string
	LaunchData string
}
