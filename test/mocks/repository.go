package mocks

// MockUserRepository is a simple mock for user repository
type MockUserRepository struct {
	ExistsFunc func(id uint) (bool, error)
	Users      map[uint]bool
}

// NewMockUserRepository creates a mock that knows the given user IDs.
func NewMockUserRepository(ids ...uint) *MockUserRepository {
	m := &MockUserRepository{Users: make(map[uint]bool, len(ids))}
	for _, id := range ids {
		m.Users[id] = true
	}
	return m
}

func (m *MockUserRepository) Exists(id uint) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(id)
	}
	return m.Users[id], nil
}
