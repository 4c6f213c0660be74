package database

import (
	"context"

	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/repository"
	"tasktracker/internal/errors"

	"gorm.io/gorm"
)

// gormTransactionManager implements the domain's TransactionManager interface using GORM.
type gormTransactionManager struct {
	db *gorm.DB
}

// gormRepositoryFactory builds repositories bound to a single transaction.
type gormRepositoryFactory struct {
	tx *gorm.DB
}

func (f *gormRepositoryFactory) UserRepo() repository.UserRepository {
	return NewUserRepository(f.tx)
}

func (f *gormRepositoryFactory) TaskRepo() repository.TaskRepository {
	return NewTaskRepository(f.tx)
}

// NewTransactionManager is the constructor for gormTransactionManager.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute runs fn within a single database transaction. A panic in fn rolls
// back and re-panics. Begin and commit failures match ErrTransactionFailed.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Join(domainerrors.ErrTransactionFailed, errors.Wrap(tx.Error, "failed to begin transaction"))
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&gormRepositoryFactory{tx: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Join(err, errors.Wrap(rbErr, "transaction rollback failed"))
		}

		return err
	}

	if err := tx.Commit().Error; err != nil {
		return errors.Join(domainerrors.ErrTransactionFailed, errors.Wrap(err, "failed to commit transaction"))
	}

	return nil
}
