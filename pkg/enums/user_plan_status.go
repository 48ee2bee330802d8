package enums

// UserPlanStatus is the lifecycle state of a subscription. Only active and
// cancelled are stored; expiring_soon and expired are derived when read.
type UserPlanStatus string

const (
	UserPlanStatusActive       UserPlanStatus = "active"
	UserPlanStatusCancelled    UserPlanStatus = "cancelled"
	UserPlanStatusExpiringSoon UserPlanStatus = "expiring_soon"
	UserPlanStatusExpired      UserPlanStatus = "expired"
)

var userPlanStatuses = members[UserPlanStatus]{
	UserPlanStatusActive,
	UserPlanStatusCancelled,
	UserPlanStatusExpiringSoon,
	UserPlanStatusExpired,
}

func (s UserPlanStatus) String() string { return string(s) }

func (s UserPlanStatus) IsValid() bool { return userPlanStatuses.has(s) }

// IsPersisted reports whether the status may be written to storage.
func (s UserPlanStatus) IsPersisted() bool {
	return s == UserPlanStatusActive || s == UserPlanStatusCancelled
}

func ParseUserPlanStatus(value string) (UserPlanStatus, error) {
	return userPlanStatuses.parse("user plan status", value)
}
