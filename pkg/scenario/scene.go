package scenario

// Scene is a location inside an act. Exits define the scene graph.
type Scene struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Exits       []Exit `yaml:"exits,omitempty" json:"exits,omitempty"`
}

// Exit connects a scene to another scene of the same act.
type Exit struct {
	To         string `yaml:"to" json:"to"`
	Label      string `yaml:"label,omitempty" json:"label,omitempty"`
	Locked     bool   `yaml:"locked,omitempty" json:"locked,omitempty"`
	ExitsStory bool   `yaml:"exits_story,omitempty" json:"exits_story,omitempty"` // leaving through it ends the story
}

// ActorDef declares an actor and its default placement.
type ActorDef struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	Scene         string   `yaml:"scene,omitempty" json:"scene,omitempty"`
	DefaultStatus string   `yaml:"default_status,omitempty" json:"default_status,omitempty"`
	StatusOptions []string `yaml:"status_options,omitempty" json:"status_options,omitempty"`
}

// ObjectDef declares an object and its default placement.
type ObjectDef struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	Scene         string   `yaml:"scene,omitempty" json:"scene,omitempty"`
	DefaultStatus string   `yaml:"default_status,omitempty" json:"default_status,omitempty"`
	StatusOptions []string `yaml:"status_options,omitempty" json:"status_options,omitempty"`
}

// Scene looks up a scene by id.
func (a *Act) Scene(id string) (*Scene, bool) {
	for i := range a.Scenes {
		if a.Scenes[i].ID == id {
			return &a.Scenes[i], true
		}
	}
	return nil, false
}

// Actor looks up an actor definition by id.
func (a *Act) Actor(id string) (*ActorDef, bool) {
	for i := range a.Actors {
		if a.Actors[i].ID == id {
			return &a.Actors[i], true
		}
	}
	return nil, false
}

// Object looks up an object definition by id.
func (a *Act) Object(id string) (*ObjectDef, bool) {
	for i := range a.Objects {
		if a.Objects[i].ID == id {
			return &a.Objects[i], true
		}
	}
	return nil, false
}
