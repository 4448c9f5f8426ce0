package dashboard

// Page is everything the dashboard page renders for one session.
type Page struct {
	SessionID string
	Loading   bool
	Error     string

	Latitude     string
	Longitude    string
	MinMagnitude string
	MaxMagnitude string

	List     ListView
	Map      MapSnapshot
	Nearby   NearbyState
	Advisory AdvisoryState
}

// Page builds the page model from the current state of every view.
func (s *Session) Page() Page {
	st := s.Coordinator.State()
	return Page{
		SessionID:    s.ID,
		Loading:      st.Loading,
		Error:        st.Error,
		Latitude:     formatInput(st.Location.Latitude),
		Longitude:    formatInput(st.Location.Longitude),
		MinMagnitude: formatInput(st.Magnitude.Min),
		MaxMagnitude: formatInput(st.Magnitude.Max),
		List:         RenderList(st.Records),
		Map:          s.Map.Snapshot(),
		Nearby:       s.Nearby.State(),
		Advisory:     s.Advisory.State(),
	}
}
