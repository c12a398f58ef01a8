package server

import (
	"net/http"
)

type sensorResponse struct {
	ObjectID string   `json:"objectID"`
	Field    string   `json:"field"`
	Name     string   `json:"name"`
	Value    *float64 `json:"value"`
	Unit     string   `json:"unit"`
	Icon     string   `json:"icon"`
	Contract string   `json:"contract"`
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors := s.sensors.Sensors()
	out := make([]sensorResponse, 0, len(sensors))
	for _, sen := range sensors {
		resp := sensorResponse{
			ObjectID: sen.ObjectID(),
			Field:    sen.Field(),
			Name:     sen.Name(),
			Unit:     sen.Unit(),
			Icon:     sen.Icon(),
			Contract: sen.Contract(),
		}
		if v, ok := sen.State(); ok {
			resp.Value = &v
		}
		out = append(out, resp)
	}
	writeJSON(w, out)
}

type contractsResponse struct {
	Account    string   `json:"account"`
	Configured string   `json:"configured"`
	Contracts  []string `json:"contracts"`
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	account := s.getAccount()
	if account == nil {
		writeJSONError(w, "account not set up", http.StatusServiceUnavailable)
		return
	}
	contracts := account.Contracts
	if contracts == nil {
		contracts = []string{}
	}
	writeJSON(w, contractsResponse{
		Account:    account.Name,
		Configured: account.Data.Contract(),
		Contracts:  contracts,
	})
}
