package game

// Character is an immutable template: stats, skills, base HP, spawn cell.
// Character data will eventually come from a database; for now it is a
// hard-coded roster.
type Character struct {
	Name         string   `json:"name"`
	ProfileImage string   `json:"profileImage"`
	TokenImage   string   `json:"tokenImage"`
	Stats        [5]int   `json:"stats"` // vtl, sen, per, tal, mst
	Class        string   `json:"class"` // "physical" or "psychic"
	Skills       []string `json:"skills"`
	BaseHP       int      `json:"baseHp"`
	SpawnCell    string   `json:"spawnCell"`
}

// DefaultCharacter is assigned to every human player until character
// selection exists.
func DefaultCharacter() Character {
	return Character{
		Name:         "Pikita",
		ProfileImage: "/images/pikita_profile.png",
		TokenImage:   "/images/pikita_token.png",
		Stats:        [5]int{4, 1, 1, 2, 2},
		Class:        "physical",
		Skills:       []string{"Medikit", "Acceleration", "Contortion"},
		BaseHP:       100,
		SpawnCell:    "A1",
	}
}

var botRoster = []Character{
	{
		Name:         "Bot_A",
		ProfileImage: "/images/bettel_profile.png",
		TokenImage:   "/images/bot_white_token.png",
		Stats:        [5]int{3, 2, 1, 1, 3},
		Class:        "psychic",
		Skills:       []string{"Telekinesis", "Will-o-Wisp", "Inference"},
		BaseHP:       100,
		SpawnCell:    "B2",
	},
	{
		Name:         "Bot_B",
		ProfileImage: "/images/bettel_profile.png",
		TokenImage:   "/images/bot_blue_token.png",
		Stats:        [5]int{2, 3, 2, 1, 2},
		Class:        "physical",
		Skills:       []string{"Overwatch", "Suppression", "Patch-Up"},
		BaseHP:       100,
		SpawnCell:    "Y3",
	},
}

// BotCharacter returns the bot template for a slot, cycling through the
// roster by slot index.
func BotCharacter(slotIdx int) Character {
	return botRoster[slotIdx%len(botRoster)]
}
