package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"
	"go_5_vocab_practice/internal/textutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExerciseGenerator は単語と関連から演習を1つ作ります。
type ExerciseGenerator interface {
	// Build は kind が nil なら、使える関連が対応する演習形式から一様に選びます。
	Build(ctx context.Context, learnerID uuid.UUID, word *model.Word, kind *model.ExerciseKind) (*model.Exercise, error)
}

// exerciseForm は1種類の関連から作れる演習です。
type exerciseForm struct {
	relation model.RelationKind
	kind     model.ExerciseKind
	related  []*model.Word
	blanked  []blankedExample // usage-example のみ
}

type blankedExample struct {
	sentence string
	original string
}

// distractorRelations は誤答候補を集める近傍の関連です。
var distractorRelations = []model.RelationKind{model.RelationSynonym, model.RelationAntonym, model.RelationSimilar}

type exerciseGenerator struct {
	db       *gorm.DB
	wordRepo repository.WordRepository
	edgeRepo repository.EdgeRepository
	graph    GraphStore
	resolver RelationResolver
	tracker  ProgressTracker
	blanker  *textutil.Blanker
	cfg      *config.Config

	mu  sync.Mutex
	rng *rand.Rand
}

func NewExerciseGenerator(
	db *gorm.DB,
	wordRepo repository.WordRepository,
	edgeRepo repository.EdgeRepository,
	graph GraphStore,
	resolver RelationResolver,
	tracker ProgressTracker,
	blanker *textutil.Blanker,
	cfg *config.Config,
) ExerciseGenerator {
	seed := uint64(cfg.Exercise.RandomSeed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &exerciseGenerator{
		db:       db,
		wordRepo: wordRepo,
		edgeRepo: edgeRepo,
		graph:    graph,
		resolver: resolver,
		tracker:  tracker,
		blanker:  blanker,
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *exerciseGenerator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}

func (g *exerciseGenerator) shuffle(n int, swap func(i, j int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(n, swap)
}

func noExercise(word *model.Word, reason string) error {
	return model.NewAppError("NO_EXERCISE_AVAILABLE",
		fmt.Sprintf("「%s」の演習を作れません: %s", word.Text, reason), "word_id", model.ErrNoExerciseAvailable)
}

func (g *exerciseGenerator) Build(ctx context.Context, learnerID uuid.UUID, word *model.Word, kind *model.ExerciseKind) (*model.Exercise, error) {
	logger := logging.GetLogger(ctx).With("learner_id", learnerID, "word_id", word.WordID)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kind != nil && !kind.IsValid() {
		return nil, model.NewAppError("INVALID_EXERCISE_KIND", fmt.Sprintf("不明な演習の種類です: %q", *kind), "kind", model.ErrInvalidInput)
	}
	if !visibleTo(word, learnerID) {
		return nil, model.NewAppError("WORD_NOT_FOUND", "単語が見つかりません。", "word_id", model.ErrNotFound)
	}
	if word.WordType.IsContent() {
		return nil, noExercise(word, "コンテンツノードは演習の対象外です")
	}

	forms, err := g.availableForms(ctx, learnerID, word)
	if err != nil {
		return nil, err
	}
	if kind != nil {
		forms = filterForms(forms, *kind)
	}
	if len(forms) == 0 {
		if kind != nil {
			return nil, noExercise(word, fmt.Sprintf("%s に使える関連がありません", *kind))
		}
		return nil, noExercise(word, "使える関連がありません")
	}

	progress, err := g.tracker.Get(ctx, learnerID, word.WordID)
	if err != nil {
		return nil, err
	}
	snapshot := *progress
	snapshot.Word = nil

	form := pickForm(forms, g.intN)
	ex := &model.Exercise{
		ExerciseID: uuid.New(),
		LearnerID:  learnerID,
		WordID:     word.WordID,
		WordText:   word.Text,
		Relation:   form.relation,
		Progress:   snapshot,
	}

	asRecall := kind != nil && *kind == model.ExerciseRecall
	if !asRecall && form.kind.IsChoice() {
		ok, err := g.renderChoice(ctx, learnerID, word, form, ex)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debug("Not enough distractors, falling back to recall", "relation", form.relation)
			asRecall = true
		}
	} else if !asRecall && form.kind == model.ExerciseFillIn {
		g.renderFillIn(word, form, ex)
	} else {
		asRecall = true
	}
	if asRecall {
		g.renderRecall(word, form, ex)
	}

	if err := ex.Validate(); err != nil {
		logger.Error("Generated exercise is inconsistent", "error", err, "kind", ex.Kind)
		return nil, err
	}
	logger.Debug("Exercise built", "exercise_id", ex.ExerciseID, "kind", ex.Kind, "relation", ex.Relation)
	return ex, nil
}

func visibleTo(w *model.Word, learnerID uuid.UUID) bool {
	return w.LearnerID == nil || *w.LearnerID == learnerID
}

// pickForm は演習形式を一様に選び、その形式を作れる関連から1つを一様に選びます。
func pickForm(forms []exerciseForm, intN func(int) int) exerciseForm {
	var kinds []model.ExerciseKind
	byKind := make(map[model.ExerciseKind][]exerciseForm)
	for _, f := range forms {
		if _, ok := byKind[f.kind]; !ok {
			kinds = append(kinds, f.kind)
		}
		byKind[f.kind] = append(byKind[f.kind], f)
	}
	group := byKind[kinds[intN(len(kinds))]]
	if len(group) == 1 {
		return group[0]
	}
	return group[intN(len(group))]
}

// filterForms は要求された形式で出せるものに絞ります。Recall はどの関連からでも作れます。
func filterForms(forms []exerciseForm, kind model.ExerciseKind) []exerciseForm {
	if kind == model.ExerciseRecall {
		return forms
	}
	var out []exerciseForm
	for _, f := range forms {
		if f.kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// availableForms は単語の関連ごとに作れる演習を集めます。並びは関連の種類順で固定です。
func (g *exerciseGenerator) availableForms(ctx context.Context, learnerID uuid.UUID, word *model.Word) ([]exerciseForm, error) {
	edges, err := g.edgeRepo.FindAllForWord(ctx, g.db, word.WordID)
	if err != nil {
		return nil, err
	}
	idsByKind := make(map[model.RelationKind][]uuid.UUID)
	var all []uuid.UUID
	for _, e := range edges {
		// 対称でない関連は単語から出ているものだけが属性
		if !e.Kind.IsSymmetric() && e.SourceWordID != word.WordID {
			continue
		}
		other := e.OtherEnd(word.WordID)
		idsByKind[e.Kind] = append(idsByKind[e.Kind], other)
		all = append(all, other)
	}
	if len(all) == 0 {
		return nil, nil
	}
	words, err := g.wordRepo.FindByIDs(ctx, g.db, all)
	if err != nil {
		return nil, err
	}

	var forms []exerciseForm
	for _, kind := range model.AllRelationKinds {
		exKind, ok := nativeExerciseKind(kind)
		if !ok {
			continue
		}
		var related []*model.Word
		for _, id := range idsByKind[kind] {
			if w, ok := words[id]; ok && visibleTo(w, learnerID) {
				related = append(related, w)
			}
		}
		if len(related) == 0 {
			continue
		}
		form := exerciseForm{relation: kind, kind: exKind, related: related}
		if kind == model.RelationUsageExample {
			for _, ex := range related {
				if s, ok := g.blanker.Blank(ex.Text, word.Text, word.Language); ok {
					form.blanked = append(form.blanked, blankedExample{sentence: s, original: ex.Text})
				}
			}
			// 例文に単語が現れなければ穴埋めにできない
			if len(form.blanked) == 0 {
				continue
			}
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// nativeExerciseKind は関連ごとの本来の演習形式です。
func nativeExerciseKind(kind model.RelationKind) (model.ExerciseKind, bool) {
	switch kind {
	case model.RelationSynonym, model.RelationAntonym:
		return model.ExerciseMultipleChoice, true
	case model.RelationDefinition:
		return model.ExerciseDefinitionMatch, true
	case model.RelationUsageExample:
		return model.ExerciseFillIn, true
	case model.RelationTranslation, model.RelationSimilar, model.RelationFormGroupMember, model.RelationImage, model.RelationQuote:
		return model.ExerciseRecall, true
	}
	return "", false
}

func (g *exerciseGenerator) renderRecall(word *model.Word, form exerciseForm, ex *model.Exercise) {
	ex.Kind = model.ExerciseRecall
	ex.Choice, ex.FillIn = nil, nil

	switch form.relation {
	case model.RelationTranslation:
		// 翻訳先の言語を1つ選び、その言語の訳語はどれでも正解
		byLang := make(map[string][]string)
		var langs []string
		for _, w := range form.related {
			if _, ok := byLang[w.Language]; !ok {
				langs = append(langs, w.Language)
			}
			byLang[w.Language] = append(byLang[w.Language], w.Text)
		}
		sort.Strings(langs)
		lang := langs[g.intN(len(langs))]
		ex.Recall = &model.RecallPayload{Prompt: word.Text, PromptLanguage: word.Language, AnswerLanguage: lang}
		ex.ExpectedAnswers = byLang[lang]

	case model.RelationSynonym, model.RelationAntonym, model.RelationSimilar:
		ex.Recall = &model.RecallPayload{Prompt: word.Text, PromptLanguage: word.Language, AnswerLanguage: word.Language}
		ex.ExpectedAnswers = wordTexts(form.related)

	case model.RelationUsageExample:
		b := form.blanked[g.intN(len(form.blanked))]
		ex.Recall = &model.RecallPayload{Prompt: b.sentence, PromptLanguage: word.Language, AnswerLanguage: word.Language}
		ex.ExpectedAnswers = []string{word.Text}

	default: // definition, image, quote, form-group-member: ノードの内容を見せて単語を答える
		content := form.related[g.intN(len(form.related))]
		ex.Recall = &model.RecallPayload{Prompt: content.Text, PromptLanguage: content.Language, AnswerLanguage: word.Language}
		ex.ExpectedAnswers = []string{word.Text}
	}
}

func (g *exerciseGenerator) renderFillIn(word *model.Word, form exerciseForm, ex *model.Exercise) {
	b := form.blanked[g.intN(len(form.blanked))]
	ex.Kind = model.ExerciseFillIn
	ex.FillIn = &model.FillInPayload{Sentence: b.sentence, Original: b.original}
	ex.ExpectedAnswers = []string{word.Text}
}

// renderChoice は選択式の演習を組み立てます。誤答候補が足りなければ false を返します。
func (g *exerciseGenerator) renderChoice(ctx context.Context, learnerID uuid.UUID, word *model.Word, form exerciseForm, ex *model.Exercise) (bool, error) {
	exclude := map[uuid.UUID]bool{word.WordID: true}
	var prompt, answer string

	switch form.relation {
	case model.RelationSynonym:
		// 類義語の類義語も正解になり得るので候補から外す
		effective, err := g.resolver.EffectiveSynonyms(ctx, word.WordID)
		if err != nil {
			return false, err
		}
		for _, w := range effective {
			exclude[w.WordID] = true
		}
		for _, w := range form.related {
			exclude[w.WordID] = true
		}
		prompt = word.Text
		answer = form.related[g.intN(len(form.related))].Text
	case model.RelationAntonym:
		for _, w := range form.related {
			exclude[w.WordID] = true
		}
		prompt = word.Text
		answer = form.related[g.intN(len(form.related))].Text
	case model.RelationDefinition:
		prompt = form.related[g.intN(len(form.related))].Text
		answer = word.Text
	default:
		return false, nil
	}

	distractors, err := g.pickDistractors(ctx, learnerID, word, exclude, answer)
	if err != nil {
		return false, err
	}
	if len(distractors) < g.cfg.Exercise.DistractorCount {
		return false, nil
	}

	options := make([]string, 0, len(distractors)+1)
	ids := make([]uuid.UUID, 0, len(distractors))
	options = append(options, answer)
	for _, d := range distractors {
		options = append(options, d.Text)
		ids = append(ids, d.WordID)
	}
	g.shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	ex.Kind = form.kind
	ex.Choice = &model.ChoicePayload{Prompt: prompt, Options: options, Distractors: ids}
	ex.ExpectedAnswers = []string{answer}
	return true, nil
}

// pickDistractors は近傍の単語から誤答候補を選びます。
// 同じ品詞・言語を優先し、足りなければ同じ言語の他の品詞で補います。
// 表記が正解や他の候補と区別できないものは使いません。
func (g *exerciseGenerator) pickDistractors(ctx context.Context, learnerID uuid.UUID, word *model.Word, exclude map[uuid.UUID]bool, answer string) ([]*model.Word, error) {
	want := g.cfg.Exercise.DistractorCount

	var pool []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, kind := range distractorRelations {
		neighbors, err := g.graph.Neighbors(ctx, word.WordID, kind, g.cfg.Graph.DefaultHops)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if !seen[n.WordID] && !exclude[n.WordID] {
				seen[n.WordID] = true
				pool = append(pool, n.WordID)
			}
		}
	}
	if len(pool) == 0 {
		return nil, nil
	}

	excludeIDs := make([]uuid.UUID, 0, len(exclude))
	for id := range exclude {
		excludeIDs = append(excludeIDs, id)
	}
	usedTexts := map[string]bool{textutil.Normalize(answer): true}
	var picked []*model.Word

	wordType := word.WordType
	tiers := []*model.WordType{&wordType, nil}
	for _, wt := range tiers {
		if len(picked) >= want {
			break
		}
		candidates, err := g.wordRepo.FindCandidates(ctx, g.db, repository.CandidateFilter{
			LearnerID: learnerID,
			Among:     pool,
			Language:  word.Language,
			WordType:  wt,
			Exclude:   excludeIDs,
		})
		if err != nil {
			return nil, err
		}
		g.shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
		for _, c := range candidates {
			if len(picked) >= want {
				break
			}
			key := textutil.Normalize(c.Text)
			if key == "" || usedTexts[key] {
				continue
			}
			usedTexts[key] = true
			picked = append(picked, c)
			excludeIDs = append(excludeIDs, c.WordID)
		}
	}
	return picked, nil
}

func wordTexts(words []*model.Word) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, w.Text)
	}
	return out
}

// isNoExercise は演習を作れない単語かどうかを返します。
func isNoExercise(err error) bool {
	return errors.Is(err, model.ErrNoExerciseAvailable)
}
