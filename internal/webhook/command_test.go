package webhook

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text string
		want Command
	}{
		{"HOJE", CommandToday},
		{"hoje", CommandToday},
		{"  hj  ", CommandToday},
		{"Agenda", CommandToday},
		{"AMANHÃ", CommandTomorrow},
		{"amanha", CommandTomorrow},
		{"AMNH", CommandTomorrow},
		{"semana", CommandWeek},
		{"Proxima Semana", CommandWeek},
		{"PRÓXIMA SEMANA", CommandWeek},
		{"AGENDA HOJE", CommandToday},
		{"agenda hoje", CommandToday},
		{"qual a agenda hoje?", CommandToday},
		{"AGENDA AMANHA", CommandTomorrow},
		{"agenda amanhã por favor", CommandTomorrow},
		{"AGENDA SEMANA", CommandWeek},
		{"me manda a proxima semana", CommandWeek},
		{"vencimentos", CommandDue},
		{"VENCIMENTO", CommandDue},
		{"vence", CommandDue},
		{"pagamentos", CommandDue},
		{"financeiro", CommandDue},
		{"oi, tudo bem?", CommandUnknown},
		{"", CommandUnknown},
		{"hoje amanha", CommandUnknown},
	}
	for _, tc := range cases {
		if got := ParseCommand(tc.text); got != tc.want {
			t.Fatalf("ParseCommand(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
