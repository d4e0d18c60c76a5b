package main

import (
	"testing"

	"github.com/odyssey-erp/commissiondesk/internal/app"
	_ "github.com/odyssey-erp/commissiondesk/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected test mode to be enabled")
	}
	main()
}
