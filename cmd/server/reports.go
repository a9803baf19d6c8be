package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/grammarhour/bookbot/internal/engine"
	"github.com/grammarhour/bookbot/internal/report"
)

// reportWeakestLimit bounds how many weakest sections the exported workbook
// lists per user.
const reportWeakestLimit = 20

// handleReport exports a user's learning statistics as a spreadsheet for
// operator review.
func handleReport(core *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user_id")
		if userID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		acc, err := core.UserAccuracy(r.Context(), userID)
		if err != nil {
			slog.Error("report accuracy failed", "user_id", userID, "error", err)
			http.Error(w, "report unavailable", http.StatusServiceUnavailable)
			return
		}
		weakest, err := core.WeakestSections(r.Context(), userID, reportWeakestLimit)
		if err != nil {
			slog.Error("report weakest sections failed", "user_id", userID, "error", err)
			http.Error(w, "report unavailable", http.StatusServiceUnavailable)
			return
		}

		f, err := report.Build(userID, acc, weakest)
		if err != nil {
			slog.Error("report build failed", "user_id", userID, "error", err)
			http.Error(w, "report unavailable", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+userID+".xlsx"))
		if err := f.Write(w); err != nil {
			slog.Error("report write failed", "user_id", userID, "error", err)
		}
	}
}
