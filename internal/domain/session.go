package domain

// Session is the authenticated staff member as seen by this front end.
// It is sealed into the session cookie at sign-in and rebuilt on every request.
type Session struct {
	UserID      string      `json:"userId"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	AccessToken string      `json:"accessToken,omitempty"`
	IsSuperuser bool        `json:"isSuperuser,omitempty"`
	Permissions []ScreenID  `json:"permissions,omitempty"`
	Profile     *ProfileRef `json:"profile,omitempty"`
}

// ProfileRef is the permission profile assigned to the user.
type ProfileRef struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// HasToken reports whether the session carries a backend bearer token.
func (s *Session) HasToken() bool {
	return s != nil && s.AccessToken != ""
}

// IsDefaultProfile reports whether the user belongs to the default profile.
func (s *Session) IsDefaultProfile() bool {
	return s != nil && s.Profile != nil && s.Profile.IsDefault
}

// Restricted reports whether screen permissions apply to this session.
// Superusers and users for whom the backend sent no permission list are unrestricted.
func (s *Session) Restricted() bool {
	return s != nil && !s.IsSuperuser && s.Permissions != nil
}

// Permits reports whether the session may open the given screen.
func (s *Session) Permits(id ScreenID) bool {
	if !s.Restricted() {
		return true
	}
	for _, p := range s.Permissions {
		if p == id {
			return true
		}
	}
	return false
}

// Public returns a copy safe to hand to the browser (no bearer token).
func (s *Session) Public() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.AccessToken = ""
	return &cp
}

// Profile is a named permission bundle managed by the backend.
type Profile struct {
	ID          int        `json:"id"`
	Name        string     `json:"nome"`
	IsDefault   bool       `json:"padrao"`
	Permissions []ScreenID `json:"permissoes"`
}

// Me is the backend's /accounts/me payload.
type Me struct {
	ID          FlexString `json:"id"`
	Name        string     `json:"name"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	IsSuperuser bool       `json:"is_superuser"`
	Permissions []ScreenID `json:"permissions"`
	Profile     *Profile   `json:"perfil"`
}

// DisplayName picks the best human name available.
func (m *Me) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	full := m.FirstName
	if m.LastName != "" {
		if full != "" {
			full += " "
		}
		full += m.LastName
	}
	if full != "" {
		return full
	}
	return m.Email
}

// ToSession builds a session from the /accounts/me payload and a bearer token.
// Profile permissions are used when the user-level list is absent.
func (m *Me) ToSession(accessToken string) *Session {
	s := &Session{
		UserID:      string(m.ID),
		Name:        m.DisplayName(),
		Email:       m.Email,
		AccessToken: accessToken,
		IsSuperuser: m.IsSuperuser,
		Permissions: m.Permissions,
	}
	if m.Profile != nil {
		s.Profile = &ProfileRef{ID: m.Profile.ID, Name: m.Profile.Name, IsDefault: m.Profile.IsDefault}
		if s.Permissions == nil {
			s.Permissions = m.Profile.Permissions
			if s.Permissions == nil {
				s.Permissions = []ScreenID{}
			}
		}
	}
	return s
}

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is the backend's /accounts/token/ response.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
