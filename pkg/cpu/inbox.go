package cpu

//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_inbox_test.go github.com/kyberias/HRMC/pkg/cpu Inbox

// Inbox supplies INBOX values. Next reports false once input is exhausted.
type Inbox interface {
	Next() (int, bool)
}

// SliceInbox returns an Inbox that yields values in order.
func SliceInbox(values []int) Inbox {
	return &sliceInbox{values: values}
}

type sliceInbox struct {
	values []int
	pos    int
}

func (s *sliceInbox) Next() (int, bool) {
	if s.pos >= len(s.values) {
		return 0, false
	}
	v := s.values[s.pos]
	s.pos++
	return v, true
}

// InboxFunc adapts a function to Inbox.
type InboxFunc func() (int, bool)

func (f InboxFunc) Next() (int, bool) { return f() }
