package concerts

// DefaultCurrency is the ISO code every registration is priced in.
const DefaultCurrency = "EUR"

type Event struct {
	ID            string
	Title         string
	Subtitle      string
	Venue         string
	Address       string
	GoogleMapsURL string
	Date          string
	DateISO       string
	Time          string
}

const MainEventID = "sous-la-voute-de-l-etoile-20250116"

var MainEvent = Event{
	ID:            MainEventID,
	Title:         "Sous la voûte de l'Étoile",
	Subtitle:      "Temple de l'Étoile · Vendredi 16 janvier 2025",
	Venue:         "Temple de l'Étoile",
	Address:       "54-56 Av. de la Grande Armée, 75017 Paris, France",
	GoogleMapsURL: "https://maps.google.com/?q=54-56+Av.+de+la+Grande+Arm%C3%A9e,+75017+Paris,+France",
	Date:          "Vendredi 16 janvier 2025",
	DateISO:       "2025-01-16",
	Time:          "20h00",
}

var catalog = map[string]Event{
	MainEventID: MainEvent,
}

// Lookup returns the event for id, falling back to the main concert for
// unknown or empty ids.
func Lookup(id string) Event {
	if ev, ok := catalog[id]; ok {
		return ev
	}
	return MainEvent
}
