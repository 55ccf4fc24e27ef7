package game

import (
	"errors"
	"fmt"
	"math/rand"
)

// BoardSize - сторона поля (5x5)
const BoardSize = 5

var (
	ErrNoWords        = errors.New("word pool is empty")
	ErrGameOver       = errors.New("game is over")
	ErrOutOfRange     = errors.New("coord out of range")
	ErrAlreadyFlipped = errors.New("card already flipped")
)

type Team string

const (
	TeamRed  Team = "RED"
	TeamBlue Team = "BLUE"
)

// Opposite returns the other team.
func (t Team) Opposite() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

type CardType string

const (
	CardRed       CardType = "RED"
	CardBlue      CardType = "BLUE"
	CardBystander CardType = "BYSTANDER"
	CardAssassin  CardType = "ASSASSIN"
)

// CardTypeForTeam maps a team to its card color.
func CardTypeForTeam(t Team) CardType {
	if t == TeamRed {
		return CardRed
	}
	return CardBlue
}

// Coord addresses a board cell. Encoded on the wire as [row, col].
type Coord struct {
	Row int
	Col int
}

// InRange reports whether the coord addresses a cell on the board.
func (c Coord) InRange() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

type Card struct {
	Word    string   `json:"word"`
	Type    CardType `json:"cardType"`
	Flipped bool     `json:"flipped"`
	Coord   Coord    `json:"coord"`
}

type Board [BoardSize][BoardSize]Card

// Remaining - счётчики неоткрытых карт команд. Encoded as [blue, red].
type Remaining struct {
	Blue uint8
	Red  uint8
}

// Status is either in-progress or over with a winner.
// Winner is empty while the game is running.
type Status struct {
	Winner Team
}

// Over reports whether the game has finished.
func (s Status) Over() bool {
	return s.Winner != ""
}

// Game is a value; transitions return new Games and never mutate the
// receiver. The only impurity is the injected rng used for board setup.
type Game struct {
	Board        Board     `json:"board"`
	StartingTeam Team      `json:"startingTeam"`
	TurnTeam     Team      `json:"turnTeam"`
	Remaining    Remaining `json:"remainingCards"`
	Status       Status    `json:"gameStatus"`
}

// New builds a fresh game for the given starting team. The board holds
// 9 cards of the starting color, 8 of the opposite, 1 assassin and 7
// bystanders; words are sampled with replacement from the pool.
func New(starting Team, words []string, rng *rand.Rand) (Game, error) {
	board, err := newBoard(starting, words, rng)
	if err != nil {
		return Game{}, err
	}

	remaining := Remaining{Blue: 8, Red: 9}
	if starting == TeamBlue {
		remaining = Remaining{Blue: 9, Red: 8}
	}

	return Game{
		Board:        board,
		StartingTeam: starting,
		TurnTeam:     starting,
		Remaining:    remaining,
	}, nil
}

// NewFromCurrent reseeds the board and hands the start to the other team.
func (g Game) NewFromCurrent(words []string, rng *rand.Rand) (Game, error) {
	return New(g.StartingTeam.Opposite(), words, rng)
}

func newBoard(starting Team, words []string, rng *rand.Rand) (Board, error) {
	if len(words) == 0 {
		return Board{}, ErrNoWords
	}

	var board Board
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			board[row][col] = Card{
				Word:  words[rng.Intn(len(words))],
				Type:  CardBystander,
				Coord: Coord{Row: row, Col: col},
			}
		}
	}

	for i := 0; i < 9; i++ {
		fillCard(&board, CardTypeForTeam(starting), rng)
	}
	for i := 0; i < 8; i++ {
		fillCard(&board, CardTypeForTeam(starting.Opposite()), rng)
	}
	fillCard(&board, CardAssassin, rng)

	return board, nil
}

// fillCard converts a uniformly random bystander cell to the given
// type, retrying draws that land on an already assigned cell.
func fillCard(board *Board, t CardType, rng *rand.Rand) {
	for {
		card := &board[rng.Intn(BoardSize)][rng.Intn(BoardSize)]
		if card.Type == CardBystander {
			card.Type = t
			return
		}
	}
}

// FlipCard reveals the card at the given coord and returns the next
// game state together with the flipped card. A flip matching the turn
// team keeps the turn; bystanders, the assassin and off-color flips
// pass it. The assassin ends the game in favor of the team that was
// not on turn; exhausting a team's counter ends it in that team's favor.
func (g Game) FlipCard(at Coord) (Game, Card, error) {
	if g.Status.Over() {
		return g, Card{}, ErrGameOver
	}
	if !at.InRange() {
		return g, Card{}, fmt.Errorf("%w: (%d, %d)", ErrOutOfRange, at.Row, at.Col)
	}

	card := g.Board[at.Row][at.Col]
	if card.Flipped {
		return g, Card{}, fmt.Errorf("%w: (%d, %d)", ErrAlreadyFlipped, at.Row, at.Col)
	}

	card.Flipped = true
	g.Board[at.Row][at.Col] = card

	switch card.Type {
	case CardBlue:
		g.Remaining.Blue--
	case CardRed:
		g.Remaining.Red--
	}

	turnBefore := g.TurnTeam
	if card.Type != CardTypeForTeam(turnBefore) {
		g.TurnTeam = turnBefore.Opposite()
	}

	switch {
	case card.Type == CardAssassin:
		g.Status = Status{Winner: turnBefore.Opposite()}
	case g.Remaining.Blue == 0:
		g.Status = Status{Winner: TeamBlue}
	case g.Remaining.Red == 0:
		g.Status = Status{Winner: TeamRed}
	}

	return g, card, nil
}

// NextTurn passes the turn to the other team; no-op once the game is over.
func (g Game) NextTurn() Game {
	if g.Status.Over() {
		return g
	}
	g.TurnTeam = g.TurnTeam.Opposite()
	return g
}

// CardAt returns the card at the given coord.
func (g Game) CardAt(at Coord) (Card, error) {
	if !at.InRange() {
		return Card{}, fmt.Errorf("%w: (%d, %d)", ErrOutOfRange, at.Row, at.Col)
	}
	return g.Board[at.Row][at.Col], nil
}
