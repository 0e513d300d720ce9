package rbac

// CreateRoleRequest defines a new role and the labels it grants.
type CreateRoleRequest struct {
	Name          string   `json:"name"`
	AllowedLabels []string `json:"allowed_labels"`
}

// RoleResponse is the public view of a role.
type RoleResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	AllowedLabels []string `json:"allowed_labels"`
}

// AssignRolesRequest replaces a user's role set.
type AssignRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// SetLabelsRequest replaces a package's label set.
type SetLabelsRequest struct {
	Labels []string `json:"labels"`
}
