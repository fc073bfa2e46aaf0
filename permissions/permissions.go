package permissions

import "github.com/shubhamforall/petstore-api/models"

// Action names gate exactly one operation each.
const (
	CreatePet  = "CREATE_PET"
	UpdatePet  = "UPDATE_PET"
	DeletePet  = "DELETE_PET"
	GetPets    = "GET_PETS"
	CreateUser = "CREATE_USER"
	GetUsers   = "GET_USERS"
)

// Defaults is the role table the server starts with.
func Defaults() map[string][]models.Role {
	return map[string][]models.Role{
		CreatePet:  {models.RoleAdmin},
		UpdatePet:  {models.RoleAdmin},
		DeletePet:  {models.RoleAdmin},
		GetPets:    {models.RoleAdmin, models.RoleSuperAdmin, models.RoleUser},
		CreateUser: {models.RoleSuperAdmin},
		GetUsers:   {models.RoleSuperAdmin},
	}
}

// Table maps an action to the roles allowed to perform it. It cannot change after New.
type Table struct {
	rules map[string]map[models.Role]struct{}
}

func New(rules map[string][]models.Role) *Table {
	t := &Table{rules: make(map[string]map[models.Role]struct{}, len(rules))}
	for action, roles := range rules {
		set := make(map[models.Role]struct{}, len(roles))
		for _, r := range roles {
			set[r] = struct{}{}
		}
		t.rules[action] = set
	}
	return t
}

// Has reports whether action has an entry, even an empty one.
func (t *Table) Has(action string) bool {
	_, ok := t.rules[action]
	return ok
}

// Allows is false for unknown actions and empty role sets.
func (t *Table) Allows(role models.Role, action string) bool {
	roles, ok := t.rules[action]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}
