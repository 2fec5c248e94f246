package auth

// Known OAuth scopes used by the dashboard service.
const (
	ScopeActivitiesRead  = "activities:read"
	ScopeActivitiesWrite = "activities:write"
	ScopeAdmin           = "admin"
)
