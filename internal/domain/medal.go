package domain

// Medal: награда за место в таблице чата.
type Medal int

const (
	MedalNone Medal = iota
	MedalGold
	MedalSilver
	MedalBronze
)

var medalGlyphs = map[Medal]string{
	MedalGold:   "🥇",
	MedalSilver: "🥈",
	MedalBronze: "🥉",
}

// MedalForPosition возвращает медаль для позиции в таблице (с нуля).
func MedalForPosition(pos int) Medal {
	switch pos {
	case 0:
		return MedalGold
	case 1:
		return MedalSilver
	case 2:
		return MedalBronze
	default:
		return MedalNone
	}
}

// Glyph возвращает эмодзи медали или пустую строку.
func (m Medal) Glyph() string {
	return medalGlyphs[m]
}

func (m Medal) String() string {
	switch m {
	case MedalGold:
		return "gold"
	case MedalSilver:
		return "silver"
	case MedalBronze:
		return "bronze"
	default:
		return "none"
	}
}
