package domain

// Event names understood on the duplex channel.
const (
	EventUserUpdate = "User/update" // data: UserInfo, to the mutated user only
	EventRoomUsers  = "Room/users"  // data: []MemberInfo, to every member of an affected room
	EventRoomUpdate = "Room/update" // data: {field: value}, subject: attribution
	EventTimeSet    = "Time/set"    // inbound only, data: number
)

// Event is the JSON envelope of every duplex frame.
type Event struct {
	Event   string    `json:"event"`
	Data    any       `json:"data"`
	Subject SubjectID `json:"subject,omitempty"`
}
