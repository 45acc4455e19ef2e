// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"training_reminder_bot/internal/app"
	"training_reminder_bot/internal/domain/reminder"
	"training_reminder_bot/internal/domain/schedule"
)

const upcomingCount = 3

// Deps bundles what the bot commands need.
type Deps struct {
	Lookup      *app.LookupService
	Reminders   *app.ReminderService
	Settings    *app.SettingsRepository
	OwnerChatID int64
	Clock       func() time.Time
}

// RegisterBotCommands registers the owner-facing commands.
func RegisterBotCommands(ctx context.Context, b *telebot.Bot, deps Deps, baseLogger *logrus.Entry) {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	catalog := deps.Lookup.Catalog()

	handle := func(command string, h func(c telebot.Context, logCtx *logrus.Entry) error) {
		b.Handle(command, func(c telebot.Context) error {
			logCtx := baseLogger.WithFields(logrus.Fields{
				"command":   command,
				"sender_id": c.Sender().ID,
			})
			if c.Sender().ID != deps.OwnerChatID {
				logCtx.Warn("Unauthorized access attempt")
				return c.Send("שגיאה: אין לך הרשאה להשתמש בבוט הזה.")
			}
			logCtx.Info("Command received")
			return h(c, logCtx)
		})
	}

	handle("/start", func(c telebot.Context, logCtx *logrus.Entry) error {
		if err := deps.Settings.SetNotificationsPermitted(ctx, true); err != nil {
			logCtx.WithError(err).Error("Failed to grant notification permission")
			return c.Send("אירעה שגיאה. נסו שוב מאוחר יותר.")
		}
		return c.Send(fmt.Sprintf("שלום %s! התראות הופעלו. השתמשו ב-/help לרשימת הפקודות.", c.Sender().FirstName))
	})

	handle("/stop", func(c telebot.Context, logCtx *logrus.Entry) error {
		if err := deps.Settings.SetNotificationsPermitted(ctx, false); err != nil {
			logCtx.WithError(err).Error("Failed to revoke notification permission")
			return c.Send("אירעה שגיאה. נסו שוב מאוחר יותר.")
		}
		return c.Send("התראות כובו. התזכורות נשמרות ויחזרו לפעול אחרי /start.")
	})

	handle("/help", func(c telebot.Context, _ *logrus.Entry) error {
		var help strings.Builder
		help.WriteString("פקודות זמינות:\n\n")
		help.WriteString("/regions - אזורים וסטטוס\n")
		help.WriteString("/branches <אזור> - סניפים פעילים באזור\n")
		help.WriteString("/next <אזור> | <סניף> | <קבוצה> - האימונים הקרובים\n")
		help.WriteString("/remind <סניף; סניף> | <קבוצה; קבוצה> | <דקות> - הפעלת תזכורות\n")
		help.WriteString("/remind_off - כיבוי תזכורות\n")
		help.WriteString("/reminders - התזכורות הפעילות\n")
		help.WriteString("/stop - השתקת התראות")
		return c.Send(help.String())
	})

	handle("/regions", func(c telebot.Context, _ *logrus.Entry) error {
		var out strings.Builder
		for _, r := range catalog.Regions() {
			if catalog.IsRegionActive(r.ID) {
				out.WriteString(fmt.Sprintf("✅ %s (%s)\n", r.Name, r.ID))
				continue
			}
			out.WriteString(fmt.Sprintf("⛔ %s (%s): %s\n", r.Name, r.ID, catalog.RegionStatus(r.ID)))
		}
		return c.Send(out.String())
	})

	handle("/branches", func(c telebot.Context, _ *logrus.Entry) error {
		region := strings.TrimSpace(c.Message().Payload)
		if region == "" {
			return c.Send("שימוש: /branches <אזור>")
		}
		if !catalog.IsRegionActive(region) {
			if msg := catalog.RegionStatus(region); msg != "" {
				return c.Send(msg)
			}
			return c.Send(fmt.Sprintf("האזור %s אינו פעיל.", region))
		}
		return c.Send(formatBranches(catalog, catalog.BranchesFor(region)))
	})

	handle("/next", func(c telebot.Context, logCtx *logrus.Entry) error {
		parts := splitArgs(c.Message().Payload, "|")
		if len(parts) != 3 {
			return c.Send("שימוש: /next <אזור> | <סניף> | <קבוצה>")
		}
		region, branch, group := parts[0], parts[1], parts[2]
		if !catalog.IsRegionActive(region) {
			if msg := catalog.RegionStatus(region); msg != "" {
				return c.Send(msg)
			}
		}
		occs := deps.Lookup.UpcomingWithin(region, branch, group, upcomingCount, deps.Clock(), app.StartedGrace)
		logCtx.WithField("results", len(occs)).Debug("Upcoming occurrences resolved")
		if len(occs) == 0 {
			return c.Send("לא נמצאו אימונים קרובים.")
		}
		return c.Send(formatOccurrences(occs))
	})

	handle("/remind", func(c telebot.Context, logCtx *logrus.Entry) error {
		parts := splitArgs(c.Message().Payload, "|")
		if len(parts) != 3 {
			return c.Send("שימוש: /remind <סניף; סניף> | <קבוצה; קבוצה> | <דקות>")
		}
		lead, err := strconv.Atoi(parts[2])
		if err != nil {
			return c.Send("שגיאה: מספר הדקות חייב להיות מספר שלם.")
		}
		st := reminder.Settings{
			Enabled:     true,
			LeadMinutes: lead,
			Branches:    splitArgs(parts[0], ";"),
			Groups:      splitArgs(parts[1], ";"),
		}
		if err := deps.Reminders.ApplySettings(ctx, st); err != nil {
			logWithError := logCtx.WithError(err)
			switch {
			case errors.Is(err, reminder.ErrNoBranches), errors.Is(err, reminder.ErrNoGroups):
				logWithError.Warn("Empty selection")
				return c.Send("יש לבחור לפחות סניף אחד וקבוצה אחת.")
			case errors.Is(err, reminder.ErrReservedChar):
				logWithError.Warn("Reserved character in selection")
				return c.Send("שמות סניפים וקבוצות אינם יכולים להכיל את התו |.")
			case errors.Is(err, reminder.ErrTooManyBranches):
				logWithError.Warn("Too many branches")
				return c.Send(fmt.Sprintf("ניתן לבחור עד %d סניפים.", reminder.MaxBranches))
			default:
				logWithError.Error("Failed to apply reminder settings")
				return c.Send("אירעה שגיאה בהגדרת התזכורות.")
			}
		}
		active, err := deps.Reminders.Active(ctx)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to list active reminders")
		}
		return c.Send(fmt.Sprintf("התזכורות הופעלו (%d תזכורות, %d דקות לפני האימון).", len(active), reminder.ClampLead(lead)))
	})

	handle("/remind_off", func(c telebot.Context, logCtx *logrus.Entry) error {
		st, err := deps.Settings.Load(ctx)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to load settings, disabling with defaults")
		}
		st.Enabled = false
		if err := deps.Reminders.ApplySettings(ctx, st); err != nil {
			logCtx.WithError(err).Error("Failed to disable reminders")
			return c.Send("אירעה שגיאה בכיבוי התזכורות.")
		}
		return c.Send("התזכורות כובו.")
	})

	handle("/reminders", func(c telebot.Context, logCtx *logrus.Entry) error {
		keys, err := deps.Reminders.Active(ctx)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list reminders")
			return c.Send("אירעה שגיאה בטעינת התזכורות.")
		}
		if len(keys) == 0 {
			return c.Send("אין תזכורות פעילות.")
		}
		var out strings.Builder
		for _, k := range keys {
			out.WriteString(fmt.Sprintf("• %s · %s · יום %s %02d:%02d (%d דק׳ לפני)\n",
				k.Branch, app.GroupLabel(k.Group), schedule.DayName(k.Day), k.Hour, k.Minute, k.LeadMinutes))
		}
		return c.Send(out.String())
	})
}

func splitArgs(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formatBranches lists each branch with its resolved address, or the bare
// name when no address is known.
func formatBranches(cat *schedule.Catalog, branches []string) string {
	var out strings.Builder
	for _, b := range branches {
		if addr := cat.ResolveAddress(b); addr != b {
			out.WriteString(fmt.Sprintf("• %s: %s\n", b, addr))
			continue
		}
		out.WriteString(fmt.Sprintf("• %s\n", b))
	}
	return out.String()
}

func formatOccurrences(occs []schedule.Occurrence) string {
	var out strings.Builder
	for _, o := range occs {
		out.WriteString(fmt.Sprintf("• %s–%s\n  %s, %s\n", o.StartText, o.EndText, o.Venue, o.Address))
		if o.Instructor != "" {
			out.WriteString(fmt.Sprintf("  מדריך/ה: %s\n", o.Instructor))
		}
	}
	return out.String()
}
