package scenario

import (
	"fmt"
	"regexp"
	"slices"
)

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// IsValidID reports whether id is lowercase snake_case.
func IsValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateIDFormat(fieldName, id string) {
	if id == "" {
		v.addError("%s is empty", fieldName)
		return
	}
	if !IsValidID(id) {
		v.addError("%s '%s' should be lowercase snake_case", fieldName, id)
	}
}

// Validate checks the structural integrity of a base scenario document and
// returns one message per problem found.
func Validate(s *Scenario) []string {
	v := &validator{}
	v.validateIDFormat("slug", s.Slug)
	if s.Title == "" {
		v.addError("title is empty")
	}
	if len(s.Acts) == 0 {
		v.addError("scenario declares no acts")
	}
	if s.Hero != nil {
		v.validateIDFormat("hero slug", s.Hero.Slug)
	}

	actNumbers := make(map[int]bool)
	for _, act := range s.Acts {
		if act.Number <= 0 {
			v.addError("act number %d must be positive", act.Number)
		}
		if actNumbers[act.Number] {
			v.addError("act number %d is declared twice", act.Number)
		}
		actNumbers[act.Number] = true
	}
	for i := range s.Acts {
		v.validateAct(&s.Acts[i], actNumbers)
	}
	return v.errors
}

func (v *validator) validateAct(act *Act, actNumbers map[int]bool) {
	where := fmt.Sprintf("act %d", act.Number)
	if len(act.Scenes) == 0 {
		v.addError("%s declares no scenes", where)
	}
	if act.Hero != nil {
		v.validateIDFormat(where+" hero slug", act.Hero.Slug)
	}

	scenes := make(map[string]bool)
	for _, sc := range act.Scenes {
		v.validateIDFormat(where+" scene id", sc.ID)
		if scenes[sc.ID] {
			v.addError("%s scene id '%s' is not unique", where, sc.ID)
		}
		scenes[sc.ID] = true
	}
	for _, sc := range act.Scenes {
		for _, exit := range sc.Exits {
			if !scenes[exit.To] {
				v.addError("%s scene '%s' has exit to unknown scene '%s'", where, sc.ID, exit.To)
			}
		}
	}

	actors := make(map[string]bool)
	for _, a := range act.Actors {
		v.validateIDFormat(where+" actor id", a.ID)
		if actors[a.ID] {
			v.addError("%s actor id '%s' is not unique", where, a.ID)
		}
		actors[a.ID] = true
		v.validatePlacement(where, "actor", a.ID, a.Scene, a.DefaultStatus, a.StatusOptions, scenes)
	}

	objects := make(map[string]bool)
	for _, o := range act.Objects {
		v.validateIDFormat(where+" object id", o.ID)
		if objects[o.ID] {
			v.addError("%s object id '%s' is not unique", where, o.ID)
		}
		objects[o.ID] = true
		v.validatePlacement(where, "object", o.ID, o.Scene, o.DefaultStatus, o.StatusOptions, scenes)
	}

	for _, c := range act.Conditions {
		v.validateIDFormat(where+" condition id", c.ID)
		switch c.Type {
		case ConditionGoal, ConditionActGoal, ConditionFailure:
		default:
			v.addError("%s condition '%s' has unknown type '%s'", where, c.ID, c.Type)
		}
		switch c.Check {
		case CheckPlayerAtScene:
			if !scenes[c.Scene] {
				v.addError("%s condition '%s' references unknown scene '%s'", where, c.ID, c.Scene)
			}
		case CheckActorHasStatus:
			if !actors[c.Actor] {
				v.addError("%s condition '%s' references unknown actor '%s'", where, c.ID, c.Actor)
			}
		case CheckAllActorsHaveStatus:
			if len(c.Actors) == 0 {
				v.addError("%s condition '%s' lists no actors", where, c.ID)
			}
			for _, id := range c.Actors {
				if !actors[id] {
					v.addError("%s condition '%s' references unknown actor '%s'", where, c.ID, id)
				}
			}
		default:
			v.addError("%s condition '%s' has unknown check '%s'", where, c.ID, c.Check)
		}
		if c.NextAct != 0 && !actNumbers[c.NextAct] {
			v.addError("%s condition '%s' points to missing act %d", where, c.ID, c.NextAct)
		}
	}

	for _, ev := range act.Events {
		v.validateIDFormat(where+" event id", ev.ID)
		if ev.Trigger == nil && ev.TriggerTurn == 0 && ev.ActTurn == 0 {
			v.addError("%s event '%s' has no trigger", where, ev.ID)
		}
		if t := ev.Trigger; t != nil {
			if t.ActorStatus != nil && !actors[t.ActorStatus.Actor] {
				v.addError("%s event '%s' triggers on unknown actor '%s'", where, ev.ID, t.ActorStatus.Actor)
			}
			if t.ObjectStatus != nil && !objects[t.ObjectStatus.Object] {
				v.addError("%s event '%s' triggers on unknown object '%s'", where, ev.ID, t.ObjectStatus.Object)
			}
			if t.PlayerAtScene != "" && !scenes[t.PlayerAtScene] {
				v.addError("%s event '%s' triggers on unknown scene '%s'", where, ev.ID, t.PlayerAtScene)
			}
		}
		switch ev.Action.Type {
		case ActionActorEnters:
			if !actors[ev.Action.ActorID] {
				v.addError("%s event '%s' moves unknown actor '%s'", where, ev.ID, ev.Action.ActorID)
			}
			if !scenes[ev.Action.Scene] {
				v.addError("%s event '%s' moves actor to unknown scene '%s'", where, ev.ID, ev.Action.Scene)
			}
		case ActionWorldFlag:
		default:
			v.addError("%s event '%s' has unknown action '%s'", where, ev.ID, ev.Action.Type)
		}
	}
}

func (v *validator) validatePlacement(where, kind, id, scene, status string, options []string, scenes map[string]bool) {
	if scene != "" && !scenes[scene] {
		v.addError("%s %s '%s' placed in unknown scene '%s'", where, kind, id, scene)
	}
	if status != "" && len(options) > 0 && !slices.Contains(options, status) {
		v.addError("%s %s '%s' default status '%s' is not in status_options", where, kind, id, status)
	}
}

// ValidateOverlay reports overlay entries that do not exist in base. Such
// entries are ignored when merging.
func ValidateOverlay(base, overlay *Scenario) []string {
	v := &validator{}
	for _, oa := range overlay.Acts {
		act, ok := base.Act(oa.Number)
		if !ok {
			v.addError("overlay act %d does not exist", oa.Number)
			continue
		}
		where := fmt.Sprintf("overlay act %d", oa.Number)
		for _, sc := range oa.Scenes {
			baseScene, ok := act.Scene(sc.ID)
			if !ok {
				v.addError("%s scene '%s' does not exist", where, sc.ID)
				continue
			}
			for _, exit := range sc.Exits {
				if !slices.ContainsFunc(baseScene.Exits, func(e Exit) bool { return e.To == exit.To }) {
					v.addError("%s scene '%s' exit to '%s' does not exist", where, sc.ID, exit.To)
				}
			}
		}
		for _, a := range oa.Actors {
			if _, ok := act.Actor(a.ID); !ok {
				v.addError("%s actor '%s' does not exist", where, a.ID)
			}
		}
		for _, o := range oa.Objects {
			if _, ok := act.Object(o.ID); !ok {
				v.addError("%s object '%s' does not exist", where, o.ID)
			}
		}
		for _, c := range oa.Conditions {
			if !slices.ContainsFunc(act.Conditions, func(bc Condition) bool { return bc.ID == c.ID }) {
				v.addError("%s condition '%s' does not exist", where, c.ID)
			}
		}
		for _, ev := range oa.Events {
			if !slices.ContainsFunc(act.Events, func(be Event) bool { return be.ID == ev.ID }) {
				v.addError("%s event '%s' does not exist", where, ev.ID)
			}
		}
	}
	return v.errors
}
