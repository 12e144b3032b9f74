package record

// Property bits, in on-disk bit order. The order matters: it is the
// canonical encoding, not just a naming convenience.
const (
	PropUndeferred   uint32 = 1 << iota
	PropUntied
	PropExplicit
	PropImplicit
	PropInitial
	PropIncluded
	PropFinal
	PropMerged
	PropMergeable
	PropDepend
	PropPriority
	PropUp
	PropGrainsize
	PropIf
	PropNogroup
	PropHasFiber
	PropPersistent
	PropControlFlow
)

var propNames = []struct {
	bit  uint32
	name string
}{
	{PropUndeferred, "UNDEFERRED"},
	{PropUntied, "UNTIED"},
	{PropExplicit, "EXPLICIT"},
	{PropImplicit, "IMPLICIT"},
	{PropInitial, "INITIAL"},
	{PropIncluded, "INCLUDED"},
	{PropFinal, "FINAL"},
	{PropMerged, "MERGED"},
	{PropMergeable, "MERGEABLE"},
	{PropDepend, "DEPEND"},
	{PropPriority, "PRIORITY"},
	{PropUp, "UP"},
	{PropGrainsize, "GRAINSIZE"},
	{PropIf, "IF"},
	{PropNogroup, "NOGROUP"},
	{PropHasFiber, "HAS_FIBER"},
	{PropPersistent, "PERSISTENT"},
	{PropControlFlow, "CONTROL_FLOW"},
}

// DecodeProps returns the set of active property names, in bit order.
func DecodeProps(props uint32) []string {
	var names []string
	for _, p := range propNames {
		if props&p.bit != 0 {
			names = append(names, p.name)
		}
	}
	return names
}

// Status bits, in on-disk bit order.
const (
	StatusStarted uint32 = 1 << iota
	StatusCompleted
	StatusBlocking
	StatusBlocked
	StatusUnblocked
	StatusInBlockedList
	StatusCancelled
)

var statusNames = []struct {
	bit  uint32
	name string
}{
	{StatusStarted, "STARTED"},
	{StatusCompleted, "COMPLETED"},
	{StatusBlocking, "BLOCKING"},
	{StatusBlocked, "BLOCKED"},
	{StatusUnblocked, "UNBLOCKED"},
	{StatusInBlockedList, "IN_BLOCKED_LIST"},
	{StatusCancelled, "CANCELLED"},
}

// DecodeStatuses returns the set of active status names, in bit order.
func DecodeStatuses(statuses uint32) []string {
	var names []string
	for _, s := range statusNames {
		if statuses&s.bit != 0 {
			names = append(names, s.name)
		}
	}
	return names
}
