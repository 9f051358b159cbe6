//go:build darwin

package shm

import "github.com/taigrr/stepcounter/pedometer"

// StepsPayload is steps u64 followed by the four config fields as int32.
const (
	StepsPayload = 8 + 4*pedometer.NumFields
	StepsSize    = SnapHeader + StepsPayload
)

// StepStatus is the published state of the step daemon.
type StepStatus struct {
	Steps  uint64
	Config pedometer.Config
}

// Snapshot is a shared memory region holding the latest step status.
type Snapshot struct {
	region
}

// CreateSnapshot creates the step status region, replacing any stale one.
func CreateSnapshot(name string) (*Snapshot, error) {
	r, err := mapRegion(name, StepsSize, true)
	if err != nil {
		return nil, err
	}
	return &Snapshot{r}, nil
}

// OpenSnapshot opens an existing step status region read-only.
func OpenSnapshot(name string) (*Snapshot, error) {
	r, err := mapRegion(name, StepsSize, false)
	if err != nil {
		return nil, err
	}
	return &Snapshot{r}, nil
}

// Publish writes st. The update counter is odd while the payload is being
// written and advances by two per update.
func (s *Snapshot) Publish(st StepStatus) {
	cnt := s.u32(0) | 1
	s.putU32(0, cnt)
	s.putU64(SnapHeader, st.Steps)
	for i, f := range pedometer.Fields() {
		s.putU32(SnapHeader+8+4*i, uint32(int32(st.Config.Get(f))))
	}
	s.putU32(0, cnt+1)
}

// readAttempts bounds how often Read retries a torn payload.
const readAttempts = 8

// Read returns the published status if the counter changed since lastCount.
// ok is false when nothing new was published or no consistent copy could be
// read; lastCount is then returned unchanged.
func (s *Snapshot) Read(lastCount uint32) (StepStatus, uint32, bool) {
	for range readAttempts {
		cnt := s.u32(0)
		if cnt == lastCount {
			return StepStatus{}, lastCount, false
		}
		if cnt&1 != 0 {
			continue
		}
		st, valid := s.payload()
		if valid && s.u32(0) == cnt {
			return st, cnt, true
		}
	}
	return StepStatus{}, lastCount, false
}

// payload decodes the status. valid is false when a config field is out of
// range.
func (s *Snapshot) payload() (StepStatus, bool) {
	st := StepStatus{Steps: s.u64(SnapHeader)}
	for i, f := range pedometer.Fields() {
		cfg, err := st.Config.Set(f, int(int32(s.u32(SnapHeader+8+4*i))))
		if err != nil {
			return StepStatus{}, false
		}
		st.Config = cfg
	}
	return st, true
}
