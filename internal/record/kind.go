// Package record implements the binary trace codec (decode/encode of
// per-thread instrumentation files) and the in-memory record store.
package record

import "fmt"

// Kind tags the variant of a decoded Record. Values match the on-disk
// encoding and must never be renumbered.
type Kind uint32

const (
	KindBegin      Kind = 0
	KindEnd        Kind = 1
	KindDependency Kind = 2
	KindSchedule   Kind = 3
	KindCreate     Kind = 4
	KindDelete     Kind = 5
	KindSend       Kind = 6
	KindRecv       Kind = 7
	KindAllreduce  Kind = 8
	KindRank       Kind = 9
	KindBlocked    Kind = 10
	KindUnblocked  Kind = 11
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "BEGIN"
	case KindEnd:
		return "END"
	case KindDependency:
		return "DEPENDENCY"
	case KindSchedule:
		return "SCHEDULE"
	case KindCreate:
		return "CREATE"
	case KindDelete:
		return "DELETE"
	case KindSend:
		return "SEND"
	case KindRecv:
		return "RECV"
	case KindAllreduce:
		return "ALLREDUCE"
	case KindRank:
		return "RANK"
	case KindBlocked:
		return "BLOCKED"
	case KindUnblocked:
		return "UNBLOCKED"
	default:
		return fmt.Sprintf("KIND(%d)", uint32(k))
	}
}

// payloadSize returns the fixed payload size in bytes for kind (total
// record size minus the 16-byte generic header), or ok=false for an
// unrecognized kind.
func payloadSize(k Kind) (size int, ok bool) {
	switch k {
	case KindBegin, KindEnd:
		return 0, true
	case KindDependency:
		return 8, true
	case KindSchedule:
		return 56, true
	case KindCreate:
		return 96, true
	case KindDelete:
		return 16, true
	case KindSend, KindRecv:
		return 32, true
	case KindAllreduce:
		return 24, true
	case KindRank:
		return 8, true
	case KindBlocked, KindUnblocked:
		return 8, true
	default:
		return 0, false
	}
}

// kindOrder gives the canonical tie-breaking order used by the repair
// stage's sort key (§4.3): Rank < Ignore(Begin/End) = Create < Dependency <
// Schedule < Blocked < Unblocked < Send < Recv < Allreduce < Delete.
func kindOrder(k Kind) int {
	switch k {
	case KindRank:
		return 0
	case KindBegin, KindEnd, KindCreate:
		return 1
	case KindDependency:
		return 2
	case KindSchedule:
		return 3
	case KindBlocked:
		return 4
	case KindUnblocked:
		return 5
	case KindSend:
		return 6
	case KindRecv:
		return 7
	case KindAllreduce:
		return 8
	case KindDelete:
		return 9
	default:
		return 100
	}
}

// KindOrder exposes kindOrder to other packages (the repair stage) that need
// the canonical tie-break without duplicating the table.
func KindOrder(k Kind) int { return kindOrder(k) }
