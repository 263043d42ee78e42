package lock

// Advisory lock identifiers. The migration lock serializes schema setup across
// replicas; the scheduler lock keeps the tick loop a singleton.
const (
	MigrationLock = iota
	SchedulerLock
)

type DistributedLockManager interface {
	Acquire(lockID int) error
	TryAcquire(lockID int) (bool, error)
	Release(lockID int) error
}
