package scenario

import (
	"maps"
	"slices"
)

// Merge returns a copy of base with the textual fields of overlay applied.
// Structural fields (ids, numbers, statuses, vocabularies, exit topology)
// always come from base. Overlay entries whose id is unknown to base are
// ignored; ValidateOverlay reports them.
func Merge(base, overlay *Scenario) *Scenario {
	merged := base.Clone()
	if overlay == nil {
		return merged
	}

	replaceText(&merged.Title, overlay.Title)
	replaceText(&merged.Description, overlay.Description)
	replaceText(&merged.WorldContext, overlay.WorldContext)
	replaceText(&merged.NarratorStyle, overlay.NarratorStyle)
	mergeHero(merged.Hero, overlay.Hero)

	for _, oa := range overlay.Acts {
		act, ok := merged.Act(oa.Number)
		if !ok {
			continue
		}
		replaceText(&act.Name, oa.Name)
		replaceText(&act.Intro, oa.Intro)
		mergeHero(act.Hero, oa.Hero)

		for _, oScene := range oa.Scenes {
			scene, ok := act.Scene(oScene.ID)
			if !ok {
				continue
			}
			replaceText(&scene.Name, oScene.Name)
			replaceText(&scene.Description, oScene.Description)
			for _, oe := range oScene.Exits {
				for i := range scene.Exits {
					if scene.Exits[i].To == oe.To {
						replaceText(&scene.Exits[i].Label, oe.Label)
					}
				}
			}
		}
		for _, oActor := range oa.Actors {
			if a, ok := act.Actor(oActor.ID); ok {
				replaceText(&a.Name, oActor.Name)
				replaceText(&a.Description, oActor.Description)
			}
		}
		for _, oObj := range oa.Objects {
			if o, ok := act.Object(oObj.ID); ok {
				replaceText(&o.Name, oObj.Name)
				replaceText(&o.Description, oObj.Description)
			}
		}
		for _, oc := range oa.Conditions {
			for i := range act.Conditions {
				if act.Conditions[i].ID == oc.ID {
					replaceText(&act.Conditions[i].Narrative, oc.Narrative)
				}
			}
		}
		for _, oe := range oa.Events {
			for i := range act.Events {
				if act.Events[i].ID == oe.ID {
					replaceText(&act.Events[i].Description, oe.Description)
				}
			}
		}
	}
	return merged
}

func replaceText(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeHero(dst, src *HeroTemplate) {
	if dst == nil || src == nil {
		return
	}
	replaceText(&dst.Name, src.Name)
	replaceText(&dst.Description, src.Description)
}

// Clone returns a deep copy of the scenario.
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	c := *s
	c.Hero = s.Hero.clone()
	c.Acts = make([]Act, len(s.Acts))
	for i, act := range s.Acts {
		c.Acts[i] = act.clone()
	}
	return &c
}

func (h *HeroTemplate) clone() *HeroTemplate {
	if h == nil {
		return nil
	}
	c := *h
	c.Attributes = maps.Clone(h.Attributes)
	return &c
}

func (a Act) clone() Act {
	c := a
	c.Hero = a.Hero.clone()
	c.Scenes = make([]Scene, len(a.Scenes))
	for i, sc := range a.Scenes {
		sc.Exits = slices.Clone(sc.Exits)
		c.Scenes[i] = sc
	}
	c.Actors = slices.Clone(a.Actors)
	for i := range c.Actors {
		c.Actors[i].StatusOptions = slices.Clone(c.Actors[i].StatusOptions)
	}
	c.Objects = slices.Clone(a.Objects)
	for i := range c.Objects {
		c.Objects[i].StatusOptions = slices.Clone(c.Objects[i].StatusOptions)
	}
	c.Conditions = slices.Clone(a.Conditions)
	for i := range c.Conditions {
		c.Conditions[i].Actors = slices.Clone(c.Conditions[i].Actors)
	}
	c.Events = slices.Clone(a.Events)
	for i, ev := range c.Events {
		if ev.Trigger != nil {
			t := *ev.Trigger
			if t.ActorStatus != nil {
				as := *t.ActorStatus
				t.ActorStatus = &as
			}
			if t.ObjectStatus != nil {
				ost := *t.ObjectStatus
				t.ObjectStatus = &ost
			}
			c.Events[i].Trigger = &t
		}
		if ev.Condition != nil {
			cond := *ev.Condition
			if cond.ActorStatus != nil {
				as := *cond.ActorStatus
				cond.ActorStatus = &as
			}
			c.Events[i].Condition = &cond
		}
	}
	return c
}
