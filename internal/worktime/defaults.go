package worktime

import (
	"time"

	"github.com/nguyenvh/custodesk/internal/models"
)

// HeadquartersRoom is the on-site custody room. Files retrieved there need
// no escort note.
const HeadquartersRoom = "QLN"

// archiveRooms are the off-site archive rooms. Outside business hours their
// default shift is the opposite of the office rooms: a request raised in the
// evening targets the next afternoon run instead of the morning one.
var archiveRooms = map[string]struct{}{
	"CMT8": {},
	"LVB":  {},
}

// recognisedRooms are the room codes a department may map to directly.
var recognisedRooms = map[string]struct{}{
	HeadquartersRoom: {},
	"CMT8":           {},
	"LVB":            {},
	"DVKH":           {},
	"KHDN":           {},
}

// escortNote is the default handling note for rooms other than headquarters.
const escortNote = "Nhờ bộ phận CRC lấy hồ sơ giúp"

const (
	businessOpenHour  = 8
	businessCloseHour = 17
)

// Defaults carries the pre-filled transaction form values for a staff member.
type Defaults struct {
	TransactionDate time.Time `json:"transaction_date"`
	PartsDay        string    `json:"parts_day"`
	Room            string    `json:"room"`
	Note            string    `json:"note"`
}

// IsRecognisedRoom reports whether code is a known custody room.
func IsRecognisedRoom(code string) bool {
	_, ok := recognisedRooms[code]
	return ok
}

// ResolveDefaults derives the default transaction date, shift, room, and note
// for the given staff member at the given instant. Pure and deterministic:
// identical (staff, now) inputs always yield identical output.
func ResolveDefaults(staff *models.Staff, now time.Time) Defaults {
	local := now.In(Location)
	today := TruncateToDay(now)

	var date time.Time
	switch {
	case local.Weekday() == time.Saturday, local.Weekday() == time.Sunday:
		date = NextWorkingDay(now)
	case local.Weekday() == time.Friday && local.Hour() >= afternoonStartHour:
		date = NextWorkingDay(now)
	case local.Hour() >= afternoonStartHour:
		date = today.AddDate(0, 0, 1)
	default:
		date = today
	}

	room := ""
	if staff != nil && IsRecognisedRoom(staff.Department) {
		room = staff.Department
	}

	note := escortNote
	if room == HeadquartersRoom {
		note = ""
	}

	return Defaults{
		TransactionDate: date,
		PartsDay:        defaultShift(local, room),
		Room:            room,
		Note:            note,
	}
}

// defaultShift applies the hour matrix crossed with the room category.
// Within business hours the shift follows the clock; outside them office
// rooms target the next morning run while archive rooms target the next
// afternoon run.
func defaultShift(local time.Time, room string) string {
	hour := local.Hour()

	if hour >= businessOpenHour && hour < businessCloseHour {
		if hour < afternoonStartHour {
			return models.ShiftMorning
		}
		return models.ShiftAfternoon
	}

	if _, archive := archiveRooms[room]; archive {
		return models.ShiftAfternoon
	}
	return models.ShiftMorning
}
