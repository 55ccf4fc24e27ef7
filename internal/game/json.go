package game

import (
	"encoding/json"
	"fmt"
)

// Wire shapes follow the frontend contract: coord and remainingCards
// are positional arrays, gameStatus is either the string "IN_PROGRESS"
// or {"OVER": {"winner": ...}}.

func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coord: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coord: want [row, col], got %d elements", len(pair))
	}
	c.Row, c.Col = pair[0], pair[1]
	return nil
}

func (r Remaining) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint8{r.Blue, r.Red})
}

func (r *Remaining) UnmarshalJSON(data []byte) error {
	var pair [2]uint8
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("remainingCards: %w", err)
	}
	r.Blue, r.Red = pair[0], pair[1]
	return nil
}

const statusInProgress = "IN_PROGRESS"

type statusOver struct {
	Over struct {
		Winner Team `json:"winner"`
	} `json:"OVER"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Over() {
		return json.Marshal(statusInProgress)
	}
	var out statusOver
	out.Over.Winner = s.Winner
	return json.Marshal(out)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str != statusInProgress {
			return fmt.Errorf("gameStatus: unknown value %q", str)
		}
		s.Winner = ""
		return nil
	}

	var over statusOver
	if err := json.Unmarshal(data, &over); err != nil {
		return fmt.Errorf("gameStatus: %w", err)
	}
	if over.Over.Winner != TeamRed && over.Over.Winner != TeamBlue {
		return fmt.Errorf("gameStatus: unknown winner %q", over.Over.Winner)
	}
	s.Winner = over.Over.Winner
	return nil
}
