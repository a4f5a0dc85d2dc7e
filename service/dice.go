package service

import (
	"math/rand/v2"

	"highroll/models"
)

type diceRoller struct{}

// NewDiceRoller returns a roller that draws uniformly from the faces of a six-sided die
func NewDiceRoller() DiceRoller {
	return diceRoller{}
}

func (diceRoller) Roll() int {
	return rand.IntN(models.MaxDiceValue-models.MinDiceValue+1) + models.MinDiceValue
}
