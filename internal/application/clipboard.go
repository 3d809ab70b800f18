package application

import (
	"strings"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// FormatClipboard renders objective titles grouped by account, accounts in
// first-seen order: "Alpha ~~ T1 ~~ T2 || Beta ~~ T3". Empty input yields "".
func FormatClipboard(objectives []model.Objective) string {
	var order []string
	titles := make(map[string][]string)

	for _, o := range objectives {
		if _, seen := titles[o.AccountName]; !seen {
			order = append(order, o.AccountName)
		}
		titles[o.AccountName] = append(titles[o.AccountName], o.Title)
	}

	groups := make([]string, 0, len(order))
	for _, name := range order {
		groups = append(groups, strings.Join(append([]string{name}, titles[name]...), " ~~ "))
	}
	return strings.Join(groups, " || ")
}
