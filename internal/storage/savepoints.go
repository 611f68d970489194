package storage

import "fmt"

// Savepoint issues a new nestable named savepoint. Callers obtain name from
// NewSavepointName, guaranteeing uniqueness within the process so nested
// projections never collide.
func (s *Storage) Savepoint(name string) error {
	_, err := s.db.Exec(fmt.Sprintf("SAVEPOINT %s", name))
	return err
}

// RollbackTo rolls back to a previously issued savepoint without releasing
// it, undoing every statement issued since Savepoint(name) while keeping
// the savepoint itself open for a subsequent Release.
func (s *Storage) RollbackTo(name string) error {
	_, err := s.db.Exec(fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name))
	return err
}

// Release releases a previously issued savepoint.
func (s *Storage) Release(name string) error {
	_, err := s.db.Exec(fmt.Sprintf("RELEASE SAVEPOINT %s", name))
	return err
}

// NewSavepointName returns a fresh name for a nested savepoint. Names are
// scoped to this Storage instance and monotonically increasing, so nested
// savepoints (a withProjection call inside another savepoint) never
// collide.
func (s *Storage) NewSavepointName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spCounter++
	return fmt.Sprintf("sp_%d", s.spCounter)
}
