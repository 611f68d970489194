package storage

// BeginAction starts the transaction that scopes one host-level action
// (one line of replayed input). Engine calls within the action run as
// ordinary statements on the single pooled connection; CommitAction or
// RollbackAction closes the scope depending on whether the engine
// returned an error.
func (s *Storage) BeginAction() error {
	_, err := s.db.Exec("BEGIN")
	return err
}

// CommitAction commits the current action's transaction.
func (s *Storage) CommitAction() error {
	_, err := s.db.Exec("COMMIT")
	return err
}

// RollbackAction rolls back the current action's transaction.
func (s *Storage) RollbackAction() error {
	_, err := s.db.Exec("ROLLBACK")
	return err
}
