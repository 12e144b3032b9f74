package record

// Record is one instrumentation event, tagged by Payload's concrete type.
//
// Pid and Tid identify the owning process and hardware thread; they are
// copied from the enclosing file's header at decode time so a Record is
// self-describing once it leaves the Store.
type Record struct {
	Pid       uint32
	Tid       uint32
	Timestamp uint64
	Reserved  uint32
	Payload   Payload
}

// Kind is a convenience accessor over Payload.Kind().
func (r Record) Kind() Kind { return r.Payload.Kind() }

// FileHeader is the 16-byte header prefixing every trace file.
type FileHeader struct {
	Magic   [4]byte
	Version uint32
	Pid     uint32
	Tid     uint32
}

// WantMagic is the only accepted file magic.
var WantMagic = [4]byte{'t', 'a', 's', 'k'}
