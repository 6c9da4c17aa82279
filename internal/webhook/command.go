package webhook

import "strings"

// Command is one recognized inbound vocabulary entry.
type Command int

const (
	CommandUnknown Command = iota
	CommandToday
	CommandTomorrow
	CommandWeek
	CommandDue
)

// ParseCommand maps free text to a command. Bare keywords match exactly and
// case-insensitively; the AGENDA-prefixed and "proxima semana" forms also
// match inside a longer sentence. Anything else answers with help.
func ParseCommand(text string) Command {
	t := strings.ToUpper(strings.TrimSpace(text))
	switch t {
	case "HOJE", "HJ", "AGENDA":
		return CommandToday
	case "AMANHÃ", "AMANHA", "AMNH":
		return CommandTomorrow
	case "SEMANA", "PROXIMA SEMANA", "PRÓXIMA SEMANA":
		return CommandWeek
	case "VENCIMENTOS", "VENCIMENTO", "VENCE", "PAGAMENTOS", "FINANCEIRO":
		return CommandDue
	}
	switch {
	case strings.Contains(t, "AGENDA HOJE"):
		return CommandToday
	case strings.Contains(t, "AGENDA AMANHA") || strings.Contains(t, "AGENDA AMANHÃ"):
		return CommandTomorrow
	case strings.Contains(t, "AGENDA SEMANA") ||
		strings.Contains(t, "PROXIMA SEMANA") ||
		strings.Contains(t, "PRÓXIMA SEMANA"):
		return CommandWeek
	}
	return CommandUnknown
}
