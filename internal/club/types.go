package club

// Class types offered by the facility. These are the path segments the
// remote API uses, not display names.
const (
	ClassSwimming = "swimmingClass"
	ClassGym      = "gymClass"
	ClassTennis   = "tennisClass"
)

var ClassTypes = []string{ClassSwimming, ClassGym, ClassTennis}

// Session is an authenticated caller identity. It is a value on purpose:
// each worker threads its own session through every call, and only
// Authenticate/Identity produce new ones.
type Session struct {
	Token  string
	UserID string
}

// Attendance is one user's entry on a class roster.
type Attendance struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

const AttendanceCancelled = "cancelled"

// SlotClass is a single bookable class instance inside an inventory day.
type SlotClass struct {
	ID             string       `json:"_id"`
	ClassDate      string       `json:"classDate"`
	ClassTime      string       `json:"classTime"`
	Limit          int          `json:"limit"`
	JoinedUsers    int          `json:"joinedUsers"`
	Active         bool         `json:"active"`
	AttendanceList []Attendance `json:"attendanceList"`
}

// Available reports how many seats are still open on the class.
func (s SlotClass) Available() int {
	return s.Limit - s.JoinedUsers
}

// CancelledBy reports whether the given user has a cancelled attendance
// entry on the class roster.
func (s SlotClass) CancelledBy(userID string) bool {
	for _, a := range s.AttendanceList {
		if a.UserID == userID && a.Status == AttendanceCancelled {
			return true
		}
	}
	return false
}

// InventoryDay groups the classes of one calendar day. ID encodes the date.
type InventoryDay struct {
	ID      string      `json:"_id"`
	Classes []SlotClass `json:"classes"`
}

// UpcomingBooking is an existing reservation as returned by the
// upcoming-classes endpoint.
type UpcomingBooking struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
	Class  struct {
		ID        string `json:"_id"`
		ClassDate string `json:"classDate"`
		ClassTime string `json:"classTime"`
	} `json:"class"`
}
