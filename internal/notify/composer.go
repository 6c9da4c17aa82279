package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/trainerhub/trainerhub/internal/contracts"
	"github.com/trainerhub/trainerhub/internal/scheduling"
)

// Composer renders message text from structured data. It is pure: no I/O,
// no side effects. All times are rendered in the provider's location.

var weekdaysPT = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

func dayPT(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%s, %02d/%02d", weekdaysPT[t.Weekday()], t.Day(), int(t.Month()))
}

func hourPT(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

func datePT(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02/01/2006")
}

// BookingConfirmed renders the confirmation for a single appointment.
func BookingConfirmed(a scheduling.Appointment, loc *time.Location) string {
	return fmt.Sprintf(
		"Olá, %s! Sua sessão de %s foi agendada para %s às %s. Até lá! 💪",
		a.ClientName, a.ServiceName, dayPT(a.StartsAt, loc), hourPT(a.StartsAt, loc))
}

// BookingSeriesConfirmed renders the confirmation for a weekly series. The
// slice must be ordered by start time.
func BookingSeriesConfirmed(appts []scheduling.Appointment, loc *time.Location) string {
	if len(appts) == 0 {
		return ""
	}
	first := appts[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s! Suas sessões de %s foram agendadas (%d no total):\n",
		first.ClientName, first.ServiceName, len(appts))
	for _, a := range appts {
		fmt.Fprintf(&b, "- %s às %s\n", dayPT(a.StartsAt, loc), hourPT(a.StartsAt, loc))
	}
	b.WriteString("Até lá! 💪")
	return b.String()
}

// Rescheduled renders the notice sent when a session moves.
func Rescheduled(previous, next scheduling.Appointment, loc *time.Location) string {
	return fmt.Sprintf(
		"Olá, %s! Sua sessão de %s do dia %s às %s foi remarcada para %s às %s.",
		next.ClientName, next.ServiceName,
		datePT(previous.StartsAt, loc), hourPT(previous.StartsAt, loc),
		dayPT(next.StartsAt, loc), hourPT(next.StartsAt, loc))
}

// Cancelled renders the notice sent when a session is cancelled.
func Cancelled(a scheduling.Appointment, loc *time.Location) string {
	return fmt.Sprintf(
		"Olá, %s! Sua sessão de %s do dia %s às %s foi cancelada. Qualquer dúvida, fale com seu treinador.",
		a.ClientName, a.ServiceName, datePT(a.StartsAt, loc), hourPT(a.StartsAt, loc))
}

// SessionReminder renders the pre-session reminder sent to the client.
func SessionReminder(a scheduling.Appointment, loc *time.Location) string {
	return fmt.Sprintf(
		"Olá, %s! Lembrete: sua sessão de %s é hoje às %s. Te espero lá! 💪",
		a.ClientName, a.ServiceName, hourPT(a.StartsAt, loc))
}

// ClientUpcoming renders a student's own upcoming sessions, pushed on demand
// from the dashboard.
func ClientUpcoming(clientName string, appts []scheduling.Appointment, loc *time.Location) string {
	if len(appts) == 0 {
		return fmt.Sprintf("Olá, %s! Você não tem sessões agendadas no momento.", clientName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s! Suas próximas sessões:\n", clientName)
	for _, a := range appts {
		fmt.Fprintf(&b, "%s às %s - %s\n",
			dayPT(a.StartsAt, loc), hourPT(a.StartsAt, loc), a.ServiceName)
	}
	return strings.TrimRight(b.String(), "\n")
}

// scheduleLines renders one line per appointment for summary bodies.
func scheduleLines(appts []scheduling.Appointment, loc *time.Location) string {
	var b strings.Builder
	for _, a := range appts {
		fmt.Fprintf(&b, "%s - %s (%s)\n", hourPT(a.StartsAt, loc), a.ClientName, a.ServiceName)
	}
	return b.String()
}

// DailySummary renders the provider's morning agenda for one day.
func DailySummary(day time.Time, appts []scheduling.Appointment, loc *time.Location) string {
	if len(appts) == 0 {
		return fmt.Sprintf("📅 Agenda de %s: nenhuma sessão agendada. Dia livre!", dayPT(day, loc))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Agenda de %s (%d sessões):\n", dayPT(day, loc), len(appts))
	b.WriteString(scheduleLines(appts, loc))
	return strings.TrimRight(b.String(), "\n")
}

// MiddaySummary renders the midday recap of what is still ahead today.
func MiddaySummary(appts []scheduling.Appointment, loc *time.Location) string {
	if len(appts) == 0 {
		return "✅ Nenhuma sessão restante para hoje. Bom descanso!"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ Ainda hoje (%d sessões):\n", len(appts))
	b.WriteString(scheduleLines(appts, loc))
	return strings.TrimRight(b.String(), "\n")
}

// WeeklySummary renders the Sunday-evening recap and week preview.
func WeeklySummary(completed int, upcoming []scheduling.Appointment, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Resumo da semana: %d sessões concluídas.\n", completed)
	if len(upcoming) == 0 {
		b.WriteString("Próxima semana: nenhuma sessão agendada.")
		return b.String()
	}
	fmt.Fprintf(&b, "Próxima semana (%d sessões):\n", len(upcoming))
	for _, a := range upcoming {
		fmt.Fprintf(&b, "%s às %s - %s (%s)\n",
			dayPT(a.StartsAt, loc), hourPT(a.StartsAt, loc), a.ClientName, a.ServiceName)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ContractExpiry renders the payment-due reminder with computed days left.
func ContractExpiry(c contracts.ExpiringContract, now time.Time, loc *time.Location) string {
	days := c.DaysUntilDue(now, loc)
	amount := float64(c.MonthlyAmountCents) / 100
	switch {
	case days < 0:
		return fmt.Sprintf(
			"Olá, %s! Sua mensalidade de %s (R$ %.2f) venceu em %s. Podemos acertar?",
			c.ClientName, c.ServiceName, amount, datePT(c.DueDate, loc))
	case days == 0:
		return fmt.Sprintf(
			"Olá, %s! Sua mensalidade de %s (R$ %.2f) vence hoje (%s).",
			c.ClientName, c.ServiceName, amount, datePT(c.DueDate, loc))
	case days == 1:
		return fmt.Sprintf(
			"Olá, %s! Sua mensalidade de %s (R$ %.2f) vence amanhã (%s).",
			c.ClientName, c.ServiceName, amount, datePT(c.DueDate, loc))
	default:
		return fmt.Sprintf(
			"Olá, %s! Sua mensalidade de %s (R$ %.2f) vence em %d dias (%s).",
			c.ClientName, c.ServiceName, amount, days, datePT(c.DueDate, loc))
	}
}

// ScheduleReply renders the reply for HOJE/AMANHÃ/SEMANA commands.
func ScheduleReply(title string, appts []scheduling.Appointment, loc *time.Location) string {
	if len(appts) == 0 {
		return fmt.Sprintf("📅 %s: nenhuma sessão agendada.", title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s (%d sessões):\n", title, len(appts))
	for _, a := range appts {
		fmt.Fprintf(&b, "%s às %s - %s (%s)\n",
			dayPT(a.StartsAt, loc), hourPT(a.StartsAt, loc), a.ClientName, a.ServiceName)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DueReply renders the reply for the VENCIMENTOS command.
func DueReply(due []contracts.Contract, loc *time.Location) string {
	if len(due) == 0 {
		return "💰 Nenhuma mensalidade próxima do vencimento."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Vencimentos (%d):\n", len(due))
	for _, c := range due {
		fmt.Fprintf(&b, "%s - %s: R$ %.2f\n",
			datePT(c.DueDate, loc), c.ClientName, float64(c.MonthlyAmountCents)/100)
	}
	return strings.TrimRight(b.String(), "\n")
}

// HelpReply is the default answer to an unrecognized command.
func HelpReply() string {
	return strings.Join([]string{
		"🤖 Comandos disponíveis:",
		"HOJE - sessões de hoje",
		"AMANHÃ - sessões de amanhã",
		"SEMANA - sessões da semana",
		"VENCIMENTOS - mensalidades a vencer",
	}, "\n")
}
