package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

func TestFormatClipboard(t *testing.T) {
	objectives := []model.Objective{
		{AccountName: "Main", Title: "Kill 10 foes"},
		{AccountName: "Alt", Title: "Gather 5 plants"},
		{AccountName: "Main", Title: "Win a match"},
	}

	assert.Equal(t, "Main ~~ Kill 10 foes ~~ Win a match || Alt ~~ Gather 5 plants",
		application.FormatClipboard(objectives))
}

func TestFormatClipboard_Empty(t *testing.T) {
	assert.Empty(t, application.FormatClipboard(nil))
}
