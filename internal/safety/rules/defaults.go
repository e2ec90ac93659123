package rules

import (
	"context"
	"slices"

	"github.com/yungbote/contentsafety/internal/domain/safety"
)

// defaultBannedPhrases is the minimal set used when no external rule document
// resolves. It covers the most common unapproved efficacy claims.
var defaultBannedPhrases = []safety.BannedPhraseRule{
	{Pattern: `完治`, Suggestion: `改善が期待される`},
	{Pattern: `治る|治ります|治す`, Suggestion: `健康維持をサポートする`},
	{Pattern: `予防(でき|する|します)`, Suggestion: `健康維持に役立つ`},
	{Pattern: `副作用(は|が)?(一切)?(ない|ありません|なし)`, Suggestion: `体質に合わない場合はご使用をお控えください`},
	{Pattern: `(がん|癌)(に|が)(効く|消える)`, Suggestion: `毎日の健康づくりに`},
	{Pattern: `即効性?`, Suggestion: `実感には個人差があります`},
	{Pattern: `(絶対|必ず)(痩せる|やせる)`, Suggestion: `健康的な体づくりをサポート`},
	{Pattern: `100%(安全|効果)`, Suggestion: `品質管理を徹底した`},
	{Pattern: `\bcures?\b`, Suggestion: `supports`},
	{Pattern: `\bmiracle\b`, Suggestion: `notable`},
}

// defaultPersonaRules ships with the binary; there is no external source.
var defaultPersonaRules = []safety.PersonaRule{
	{
		ID:                "pregnancy-caffeine",
		PersonaTag:        safety.PersonaPregnancy,
		IngredientPattern: "カフェイン|caffeine",
		Severity:          safety.SeverityHigh,
		Message:           "妊娠中はカフェインの摂取に注意が必要です",
		RecommendedAction: "摂取前に医師に相談してください",
	},
	{
		ID:                "pregnancy-vitamin-a",
		PersonaTag:        safety.PersonaPregnancy,
		IngredientPattern: "レチノール|retinol|ビタミンa|vitamin a",
		Severity:          safety.SeverityHigh,
		Message:           "妊娠中のビタミンA(レチノール)の過剰摂取は胎児に影響する可能性があります",
		RecommendedAction: "摂取量を確認し、医師に相談してください",
	},
	{
		ID:                "pregnancy-herbs",
		PersonaTag:        safety.PersonaPregnancy,
		IngredientPattern: "ブラックコホシュ|black cohosh|ドンクアイ|dong quai",
		Severity:          safety.SeverityHigh,
		Message:           "妊娠中は子宮に作用する可能性のあるハーブの摂取を避けてください",
	},
	{
		ID:                "lactation-caffeine",
		PersonaTag:        safety.PersonaLactation,
		IngredientPattern: "カフェイン|caffeine",
		Severity:          safety.SeverityMedium,
		Message:           "授乳中はカフェインが母乳に移行する可能性があります",
	},
	{
		ID:                "lactation-sage",
		PersonaTag:        safety.PersonaLactation,
		IngredientPattern: "セージ|sage|ペパーミント|peppermint",
		Severity:          safety.SeverityLow,
		Message:           "授乳中は母乳分泌に影響するハーブに注意してください",
	},
	{
		ID:                "medication-st-johns-wort",
		PersonaTag:        safety.PersonaMedication,
		IngredientPattern: "セントジョーンズワート|セイヨウオトギリソウ|st. john's wort|st john's wort",
		Severity:          safety.SeverityHigh,
		Message:           "服薬中の方はセントジョーンズワートとの相互作用に注意が必要です",
		RecommendedAction: "服用中の薬がある場合は医師・薬剤師に相談してください",
	},
	{
		ID:                "medication-vitamin-k",
		PersonaTag:        safety.PersonaMedication,
		IngredientPattern: "ビタミンk|vitamin k|納豆キナーゼ|nattokinase",
		Severity:          safety.SeverityMedium,
		Message:           "抗凝固薬を服用中の方はビタミンKの摂取量に注意が必要です",
		RecommendedAction: "服用中の薬がある場合は医師・薬剤師に相談してください",
	},
	{
		ID:                "medication-grapefruit",
		PersonaTag:        safety.PersonaMedication,
		IngredientPattern: "グレープフルーツ|grapefruit",
		Severity:          safety.SeverityMedium,
		Message:           "グレープフルーツ成分は一部の医薬品の作用に影響する場合があります",
	},
	{
		ID:                "stimulant-caffeine",
		PersonaTag:        safety.PersonaStimulantSensitivity,
		IngredientPattern: "カフェイン|caffeine|ガラナ|guarana|マテ|yerba mate",
		Severity:          safety.SeverityMedium,
		Message:           "カフェインなどの刺激成分が含まれています",
	},
	{
		ID:                "underage-caffeine",
		PersonaTag:        safety.PersonaUnderage,
		IngredientPattern: "カフェイン|caffeine|ガラナ|guarana",
		Severity:          safety.SeverityHigh,
		Message:           "未成年の方はカフェインを含む製品の摂取を控えてください",
	},
	{
		ID:                "underage-diet",
		PersonaTag:        safety.PersonaUnderage,
		IngredientPattern: "ガルシニア|garcinia|ダイエット|diet",
		Severity:          safety.SeverityMedium,
		Message:           "成長期のダイエット目的での使用はお控えください",
	},
	{
		ID:                "elderly-potassium",
		PersonaTag:        safety.PersonaElderly,
		IngredientPattern: "カリウム|potassium",
		Severity:          safety.SeverityMedium,
		Message:           "腎機能が低下している方はカリウムの過剰摂取に注意してください",
		RecommendedAction: "持病のある方は医師に相談してください",
	},
}

func DefaultBannedPhraseRules() []safety.BannedPhraseRule { return slices.Clone(defaultBannedPhrases) }

func DefaultPersonaRules() []safety.PersonaRule { return slices.Clone(defaultPersonaRules) }

// BuiltinSource always resolves; it terminates every source chain.
type BuiltinSource struct{}

func (BuiltinSource) Name() string { return "builtin" }
func (BuiltinSource) Kind() string { return "builtin" }

func (BuiltinSource) TryLoad(context.Context) ([]safety.BannedPhraseRule, error) {
	return DefaultBannedPhraseRules(), nil
}

// StaticSource serves a fixed rule list. Useful for tests and embedding.
type StaticSource struct {
	Label string
	Rules []safety.BannedPhraseRule
}

func (s StaticSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "static"
}

func (StaticSource) Kind() string { return "static" }

func (s StaticSource) TryLoad(context.Context) ([]safety.BannedPhraseRule, error) {
	if len(s.Rules) == 0 {
		return nil, ErrNoRules
	}
	return slices.Clone(s.Rules), nil
}
