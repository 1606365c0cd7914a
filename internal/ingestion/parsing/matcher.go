package parsing

import (
	"fmt"

	ingestion "genfleet-cloud/internal/ingestion/domain"
)

type unitKey struct {
	station string
	unit    string
}

// MatchOutages joins outages to schedule units by (station, unit id). Outages
// without a unit id match the station aggregate. Unmatched outages are returned
// unchanged. The input slice is not modified.
func MatchOutages(outages []ingestion.Outage, units []ingestion.Unit, stations []ingestion.Station) ([]ingestion.Outage, []ingestion.Warning) {
	unitIdx := make(map[unitKey]int, len(units))
	for i, u := range units {
		key := unitKey{station: StationKey(u.Station), unit: UnitKey(u.UnitID)}
		if _, ok := unitIdx[key]; !ok {
			unitIdx[key] = i
		}
	}
	stationIdx := make(map[string]int, len(stations))
	for i, st := range stations {
		stationIdx[StationKey(st.Name)] = i
	}

	out := make([]ingestion.Outage, len(outages))
	conflicts := make([]string, 0)
	for i, o := range outages {
		out[i] = o
		stKey := StationKey(o.Station)
		if o.UnitID == "" {
			if si, ok := stationIdx[stKey]; ok {
				st := stations[si]
				out[i].Match = &ingestion.OutageMatch{
					Scope:       ingestion.MatchScopeStation,
					Station:     st.Name,
					DeratedMW:   ptr(st.TotalDeratedMW),
					AvailableMW: ptr(st.TotalAvailableMW),
				}
			}
			continue
		}
		ui, ok := unitIdx[unitKey{station: stKey, unit: UnitKey(o.UnitID)}]
		if !ok {
			continue
		}
		u := units[ui]
		match := &ingestion.OutageMatch{
			Scope:       ingestion.MatchScopeUnit,
			Station:     u.Station,
			UnitID:      u.UnitID,
			DeratedMW:   u.DeratedMW,
			AvailableMW: u.AvailableMW,
			Status:      u.Status,
		}
		if !o.IsResolved && u.Status == ingestion.StatusOnline {
			match.StatusConflict = true
			conflicts = append(conflicts, fmt.Sprintf("%s/%s", u.Station, u.UnitID))
		}
		out[i].Match = match
	}

	if len(conflicts) == 0 {
		return out, nil
	}
	return out, []ingestion.Warning{{
		Code:    ingestion.WarningStatusConflict,
		Message: fmt.Sprintf("%d unresolved outage(s) reported for units the schedule shows online: %v", len(conflicts), conflicts),
	}}
}
