// Package notify synthesizes user-facing notifications from game events
// and stat transitions and delivers them through a pluggable sink.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scard-game/scard/internal/game"
)

// Kind classifies a notification for presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// DefaultDuration is the auto-dismiss interval the UI applies when a
// notification does not override it.
const DefaultDuration = 5 * time.Second

// Notification is one toast-style message.
type Notification struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"type"`
	Message  string        `json:"message"`
	Icon     string        `json:"icon,omitempty"`
	Duration time.Duration `json:"-"`
}

// Sink receives notifications for delivery. Implementations must not
// block.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(n Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})

func newNotification(kind Kind, message, icon string) Notification {
	return Notification{
		ID:       uuid.NewString(),
		Kind:     kind,
		Message:  message,
		Icon:     icon,
		Duration: DefaultDuration,
	}
}

func Success(message, icon string) Notification { return newNotification(KindSuccess, message, icon) }
func Info(message, icon string) Notification    { return newNotification(KindInfo, message, icon) }
func Warning(message, icon string) Notification { return newNotification(KindWarning, message, icon) }
func Error(message, icon string) Notification   { return newNotification(KindError, message, icon) }

// GiftEncounter announces a non-beast encounter's effect.
func GiftEncounter(kind game.EncounterKind) Notification {
	switch kind {
	case game.EncounterFreeHealth:
		return Success("💚 Health restored!", "💚")
	case game.EncounterAttackPoints:
		return Success("⚔️ Attack power increased!", "⚔️")
	case game.EncounterReducedDamage:
		return Success("🛡️ Damage reduction gained!", "🛡️")
	case game.EncounterFreeAttack:
		return Success("🎯 Free Attack ability gained!", "🎯")
	case game.EncounterFreeFlee:
		return Success("🏃 Free Flee ability gained!", "🏃")
	case game.EncounterFreeRoam:
		return Info("🌿 Peaceful path - no encounter!", "🌿")
	default:
		return Info("🎁 Gift encounter!", "🎁")
	}
}

// CombatOutcome is how a beast encounter ended for the player.
type CombatOutcome string

const (
	OutcomeVictory CombatOutcome = "victory"
	OutcomeFled    CombatOutcome = "fled"
	OutcomeDied    CombatOutcome = "died"
)

// CombatResult announces the outcome of a fight or flee.
func CombatResult(outcome CombatOutcome, damageTaken int, freeAbility bool) Notification {
	switch outcome {
	case OutcomeVictory:
		switch {
		case freeAbility:
			return Success("⚔️ Victory! Beast defeated! (Free Attack - no damage!)", "⚔️")
		case damageTaken == 0:
			return Success("⚔️ Victory! Beast defeated!", "⚔️")
		default:
			return Warning(fmt.Sprintf("⚔️ Victory! Beast defeated! Took %d damage.", damageTaken), "⚔️")
		}
	case OutcomeFled:
		switch {
		case freeAbility:
			return Success("🏃 Escaped! (Free Flee - no damage!)", "🏃")
		case damageTaken == 0:
			return Success("🏃 Escaped successfully!", "🏃")
		default:
			return Warning(fmt.Sprintf("🏃 Escaped! Took %d damage.", damageTaken), "🏃")
		}
	default:
		return Error("💀 You died! Game over.", "💀")
	}
}

// AbilityGained announces a one-shot ability flag turning on.
func AbilityGained(kind game.EncounterKind) Notification {
	if kind == game.EncounterFreeAttack {
		return Success("✨ Free Attack ability gained! Next fight will take no damage!", "✨")
	}
	return Success("✨ Free Flee ability gained! Next flee will take no damage!", "✨")
}

func statChange(icon, name string, delta int) Notification {
	if delta > 0 {
		return Success(fmt.Sprintf("%s +%d %s!", icon, delta, name), icon)
	}
	return Warning(fmt.Sprintf("%s -%d %s", icon, -delta, name), icon)
}

// StatChanges diffs two stat snapshots into notifications: one per
// changed numeric stat, plus ability-gained messages for flags that
// turned on. Flags turning off (an ability consumed) are silent; the
// combat notification already covers them.
func StatChanges(before, after game.PlayerStats) []Notification {
	var out []Notification
	if d := int(after.Health) - int(before.Health); d != 0 {
		out = append(out, statChange("❤️", "Health", d))
	}
	if d := int(after.AttackPoints) - int(before.AttackPoints); d != 0 {
		out = append(out, statChange("⚔️", "Attack", d))
	}
	if d := int(after.DamagePoints) - int(before.DamagePoints); d != 0 {
		out = append(out, statChange("🛡️", "Damage reduction", d))
	}
	if !before.HasFreeAttack && after.HasFreeAttack {
		out = append(out, AbilityGained(game.EncounterFreeAttack))
	}
	if !before.HasFreeFlee && after.HasFreeFlee {
		out = append(out, AbilityGained(game.EncounterFreeFlee))
	}
	return out
}
