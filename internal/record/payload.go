package record

// Payload distinguishes the per-kind record bodies. Each implementation is
// an immutable value type; mutation (e.g. Create's derived send/recv/allreduce
// flags) lives in a side-map (internal/replay.ClassFlags), never on the
// payload itself.
type Payload interface {
	Kind() Kind
}

// Ignore is the payload of BEGIN/END markers: no data.
type Ignore struct{}

func (Ignore) Kind() Kind { return KindBegin }

// Dependency records a predecessor -> successor edge (out_uid -> in_uid).
type Dependency struct {
	OutUID uint32
	InUID  uint32
}

func (Dependency) Kind() Kind { return KindDependency }

// Schedule marks an enter/leave point on a hardware thread for a task.
type Schedule struct {
	UID        uint32
	Priority   uint32
	Props      uint32
	ScheduleID uint32
	Statuses   uint32
	HW         [4]uint64
}

func (Schedule) Kind() Kind { return KindSchedule }

// Create announces a task's birth.
type Create struct {
	UID           uint32
	PersistentUID uint32
	Props         uint32
	Statuses      uint32
	Label         string
	Color         uint32
	ParentUID     uint32
	OMPPriority   uint32
}

func (Create) Kind() Kind { return KindCreate }

// InitialParentUID is the sentinel parent_uid value marking the
// runtime-synthesized initial task.
const InitialParentUID uint32 = 0xFFFFFFFF

// Delete announces a task's finalization.
type Delete struct {
	UID      uint32
	Priority uint32
	Props    uint32
	Statuses uint32
}

func (Delete) Kind() Kind { return KindDelete }

// Send is a point-to-point send completion/issue record.
type Send struct {
	UID       uint32
	Count     uint32
	Dtype     uint32
	Dst       uint32
	Tag       uint32
	Comm      uint32
	Completed uint32
}

func (Send) Kind() Kind { return KindSend }

// Recv is a point-to-point receive completion/issue record.
type Recv struct {
	UID       uint32
	Count     uint32
	Dtype     uint32
	Src       uint32
	Tag       uint32
	Comm      uint32
	Completed uint32
}

func (Recv) Kind() Kind { return KindRecv }

// Allreduce is a collective-operation record.
type Allreduce struct {
	UID       uint32
	Count     uint32
	Dtype     uint32
	Op        uint32
	Comm      uint32
	Completed uint32
}

func (Allreduce) Kind() Kind { return KindAllreduce }

// Rank binds a process to a (communicator, rank) pair.
type Rank struct {
	Comm uint32
	Rank uint32
}

func (Rank) Kind() Kind { return KindRank }

// Blocked marks a task entering a blocking wait.
type Blocked struct {
	UID uint32
}

func (Blocked) Kind() Kind { return KindBlocked }

// Unblocked marks a task leaving a blocking wait.
type Unblocked struct {
	UID uint32
}

func (Unblocked) Kind() Kind { return KindUnblocked }
