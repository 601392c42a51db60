package repository

import (
	"sync"

	"gorm.io/gorm"

	"github.com/callsight/callsight/app/models"
)

// Repositories bundles all repository instances.
type Repositories struct {
	Event EventRepository
	Call  CallRepository
}

// NewRepositories creates all repositories against one DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Event: NewEventRepository(db),
		Call:  NewCallRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetEventRepository returns the lifecycle event repository instance
func (f *Factory) GetEventRepository() EventRepository {
	return f.GetRepositories().Event
}

// GetCallRepository returns the call repository instance
func (f *Factory) GetCallRepository() CallRepository {
	return f.GetRepositories().Call
}

var globalFactory *Factory

// InitializeFactory sets up the global repository factory.
func InitializeFactory(db *gorm.DB) {
	globalFactory = NewFactory(db)
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}

// Migratable lists the models owned by this module for AutoMigrate.
func Migratable() []interface{} {
	return []interface{}{
		&models.LifecycleEvent{},
		&models.Call{},
	}
}
