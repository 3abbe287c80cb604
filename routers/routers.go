package routers

import (
	"vesting-project/handlers"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the HTTP routes for the vesting service
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Adds a private round investor whose schedule starts immediately (owner only)
	r.HandleFunc("/investors", h.AddInvestor).Methods("POST")
	r.HandleFunc("/investors", h.ListInvestors).Methods("GET")

	r.HandleFunc("/rounds", h.ListRounds).Methods("GET")

	// Fires the one-time start trigger for every fixed round (owner only)
	r.HandleFunc("/vesting/start", h.StartVesting).Methods("POST")
	r.HandleFunc("/vesting", h.Status).Methods("GET")

	// Registered before /schedules/{key} routes so "release" is never read as a key
	r.HandleFunc("/schedules/release", h.ReleaseAll).Methods("POST")

	// {key} is a round index or an investor address
	r.HandleFunc("/schedules/{key}", h.GetSchedule).Methods("GET")
	r.HandleFunc("/schedules/{key}/release", h.Release).Methods("POST")

	r.HandleFunc("/balances/{address}", h.BalanceOf).Methods("GET")

	r.HandleFunc("/releases", h.ListReleases).Methods("GET")
}
