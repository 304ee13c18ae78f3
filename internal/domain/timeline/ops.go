package timeline

// Direct edits without history. Each runs the matching command once.

// AddTrack inserts an empty track of kind at the top and returns its id.
func (tl *Timeline) AddTrack(kind Kind) (int, error) {
	cmd := &AddTrack{Kind: kind}
	if err := cmd.Apply(tl); err != nil {
		return 0, err
	}
	return cmd.TrackID(), nil
}

// RemoveTrack deletes an empty track.
func (tl *Timeline) RemoveTrack(trackID int) error {
	return (&RemoveTrack{TrackID: trackID}).Apply(tl)
}

// PlaceClip adds c using smart placement and returns the chosen track id.
func (tl *Timeline) PlaceClip(c Clip) (int, error) {
	cmd := &PlaceClip{Clip: c}
	if err := cmd.Apply(tl); err != nil {
		return 0, err
	}
	return cmd.TrackID(), nil
}

// InsertClip adds c to a specific track.
func (tl *Timeline) InsertClip(trackID int, c Clip) error {
	return (&InsertClip{TrackID: trackID, Clip: c}).Apply(tl)
}

// RemoveClip deletes a clip.
func (tl *Timeline) RemoveClip(clipID string) error {
	return (&RemoveClip{ClipID: clipID}).Apply(tl)
}

// MoveClip moves a clip to start on trackID (zero keeps its track).
func (tl *Timeline) MoveClip(clipID string, start float64, trackID int) error {
	return (&MoveClip{ClipID: clipID, Start: start, TrackID: trackID}).Apply(tl)
}

// TrimClip sets a clip's duration.
func (tl *Timeline) TrimClip(clipID string, duration float64) error {
	return (&TrimClip{ClipID: clipID, Duration: duration}).Apply(tl)
}

// UpdateProperties replaces a clip's transforms.
func (tl *Timeline) UpdateProperties(clipID string, p Properties) error {
	return (&UpdateProperties{ClipID: clipID, Properties: p}).Apply(tl)
}

// SetContent edits a text clip.
func (tl *Timeline) SetContent(clipID, content string) error {
	return (&SetContent{ClipID: clipID, Content: content}).Apply(tl)
}

// SetTrackHidden shows or hides a track.
func (tl *Timeline) SetTrackHidden(trackID int, hidden bool) error {
	return (&SetTrackHidden{TrackID: trackID, Hidden: hidden}).Apply(tl)
}

// SetTrackMuted mutes or unmutes a track.
func (tl *Timeline) SetTrackMuted(trackID int, muted bool) error {
	return (&SetTrackMuted{TrackID: trackID, Muted: muted}).Apply(tl)
}
