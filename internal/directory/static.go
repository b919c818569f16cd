package directory

import (
	"encoding/json"
	"os"
	"sync"
)

type (
	// User is one directory principal
	User struct {
		ID      string   `json:"id"`
		Email   string   `json:"email"`
		Display string   `json:"display,omitempty"`
		Roles   []string `json:"roles,omitempty"`
	}

	// Static is a fixed in-process principal directory, loaded once from a
	// JSON file or built programmatically for tests
	Static struct {
		users map[string]*User
		roles map[string][]*User
		mu    sync.RWMutex
	}
)

// NewStatic creates a directory from a set of users
func NewStatic(users ...*User) *Static {
	d := &Static{
		users: map[string]*User{},
		roles: map[string][]*User{},
	}
	for _, u := range users {
		d.add(u)
	}
	return d
}

// Load reads a directory from a JSON file holding an array of users
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var users []*User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	return NewStatic(users...), nil
}

// Add registers a user after construction
func (d *Static) Add(u *User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(u)
}

func (d *Static) add(u *User) {
	d.users[u.ID] = u
	for _, role := range u.Roles {
		d.roles[role] = append(d.roles[role], u)
	}
}

func (d *Static) UserExists(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[id]
	return ok
}

func (d *Static) RoleExists(role string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.roles[role]) > 0
}

func (d *Static) UserAddress(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok || u.Email == "" {
		return "", false
	}
	return u.Email, true
}

func (d *Static) RoleAddresses(role string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, u := range d.roles[role] {
		if u.Email != "" {
			out = append(out, u.Email)
		}
	}
	return out
}
