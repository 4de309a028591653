package scenario

// Condition types
const (
	ConditionGoal    = "goal"
	ConditionActGoal = "act_goal"
	ConditionFailure = "failure"
)

// Condition checks
const (
	CheckPlayerAtScene       = "player_at_scene"
	CheckActorHasStatus      = "actor_has_status"
	CheckAllActorsHaveStatus = "all_actors_have_status"
)

// Condition is an author-declared end or act-advance predicate.
type Condition struct {
	ID        string   `yaml:"id" json:"id"`
	Type      string   `yaml:"type" json:"type"`
	Check     string   `yaml:"check" json:"check"`
	Scene     string   `yaml:"scene,omitempty" json:"scene,omitempty"`
	Actor     string   `yaml:"actor,omitempty" json:"actor,omitempty"`
	Actors    []string `yaml:"actors,omitempty" json:"actors,omitempty"`
	Status    string   `yaml:"status,omitempty" json:"status,omitempty"`
	NextAct   int      `yaml:"next_act,omitempty" json:"next_act,omitempty"`
	Narrative string   `yaml:"narrative,omitempty" json:"narrative,omitempty"`
}

// IsGoal reports whether reaching the condition counts as a success.
func (c Condition) IsGoal() bool {
	return c.Type == ConditionGoal || c.Type == ConditionActGoal
}

// Event actions
const (
	ActionActorEnters = "actor_enters"
	ActionWorldFlag   = "world_flag"
)

// Event is a scripted happening. An event with a Trigger is state-indexed;
// otherwise ActTurn or TriggerTurn index it by turn counter.
type Event struct {
	ID          string          `yaml:"id" json:"id"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	TriggerTurn int             `yaml:"trigger_turn,omitempty" json:"trigger_turn,omitempty"`
	ActTurn     int             `yaml:"act_turn,omitempty" json:"act_turn,omitempty"`
	Trigger     *EventTrigger   `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Condition   *EventCondition `yaml:"condition,omitempty" json:"condition,omitempty"`
	Action      EventAction     `yaml:"action" json:"action"`
}

// EventTrigger holds exactly one state predicate.
type EventTrigger struct {
	ActorStatus   *ActorStatusTrigger  `yaml:"actor_status,omitempty" json:"actor_status,omitempty"`
	ObjectStatus  *ObjectStatusTrigger `yaml:"object_status,omitempty" json:"object_status,omitempty"`
	PlayerAtScene string               `yaml:"player_at_scene,omitempty" json:"player_at_scene,omitempty"`
}

type ActorStatusTrigger struct {
	Actor  string `yaml:"actor" json:"actor"`
	Status string `yaml:"status" json:"status"`
}

type ObjectStatusTrigger struct {
	Object string `yaml:"object" json:"object"`
	Status string `yaml:"status" json:"status"`
}

// EventCondition gates a turn-indexed event on an exact actor status.
type EventCondition struct {
	ActorStatus *ActorStatusCondition `yaml:"actor_status,omitempty" json:"actor_status,omitempty"`
}

type ActorStatusCondition struct {
	ID     string `yaml:"id" json:"id"`
	Status string `yaml:"status" json:"status"`
}

type EventAction struct {
	Type      string `yaml:"type" json:"type"`
	ActorID   string `yaml:"actor_id,omitempty" json:"actor_id,omitempty"`
	Scene     string `yaml:"scene,omitempty" json:"scene,omitempty"`
	NewStatus string `yaml:"new_status,omitempty" json:"new_status,omitempty"`
}

// StateIndexed reports whether the event fires on a state predicate.
func (e Event) StateIndexed() bool {
	return e.Trigger != nil
}
