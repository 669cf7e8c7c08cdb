package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/internal/vectorstore"
	"ai-teaching-platform/models"

	"github.com/xuri/excelize/v2"
)

// Static ID offsets keep each dataset source in its own range. Ranges can
// collide once a source outgrows its block; accepted for these corpus sizes.
const (
	builtinIDOffset      = 1000
	encyclopediaIDOffset = 2000
	fileIDOffset         = 3000
	generatedIDOffset    = 4000
)

// DatasetService bulk-loads educational content into the vector index from
// several sources: a public encyclopedia API, structured files (JSON or
// XLSX), model-generated content, and a built-in corpus. Per-item failures
// are logged and skipped, never aborting the batch.
type DatasetService struct {
	embedder     Embedder
	index        VectorIndex
	generator    Generator
	http         *http.Client
	encyclopedia string
	encDelay     time.Duration
	genDelay     time.Duration
}

func NewDatasetService(embedder Embedder, index VectorIndex, generator Generator, encDelay, genDelay time.Duration) *DatasetService {
	return &DatasetService{
		embedder:     embedder,
		index:        index,
		generator:    generator,
		http:         &http.Client{Timeout: 15 * time.Second},
		encyclopedia: "https://en.wikipedia.org/api/rest_v1/page/summary",
		encDelay:     encDelay,
		genDelay:     genDelay,
	}
}

// SetEncyclopediaURL overrides the summary API base, used by tests.
func (dl *DatasetService) SetEncyclopediaURL(base string) {
	dl.encyclopedia = base
}

// Load ingests the named source and returns how many points were written
// plus the distinct subjects covered.
func (dl *DatasetService) Load(ctx context.Context, source, filePath string) (models.DatasetLoadResult, error) {
	var points []vectorstore.Point
	var err error

	switch strings.ToLower(source) {
	case "encyclopedia", "wikipedia":
		points = dl.loadEncyclopedia(ctx)
	case "structured-file", "file":
		points, err = dl.loadStructuredFile(ctx, filePath)
	case "model-generated", "generated":
		points = dl.loadGenerated(ctx)
	case "comprehensive":
		points = dl.loadComprehensive(ctx)
	default:
		return models.DatasetLoadResult{}, fmt.Errorf("unknown dataset source: %s", source)
	}
	if err != nil {
		return models.DatasetLoadResult{}, err
	}

	if err := dl.index.Upsert(ctx, points); err != nil {
		return models.DatasetLoadResult{}, err
	}

	subjectSet := map[string]struct{}{}
	for _, p := range points {
		subjectSet[p.Payload.Subject] = struct{}{}
	}

	return models.DatasetLoadResult{
		Source:      source,
		TotalPoints: len(points),
		Subjects:    sortedKeys(subjectSet),
	}, nil
}

type encyclopediaTopic struct {
	topic, subject, difficulty string
}

func encyclopediaTopics() []encyclopediaTopic {
	return []encyclopediaTopic{
		{"Photosynthesis", "Biology", "Beginner"},
		{"Cell membrane", "Biology", "Intermediate"},
		{"DNA replication", "Biology", "Advanced"},
		{"Mitosis", "Biology", "Intermediate"},
		{"Ecosystem", "Biology", "Beginner"},
		{"Evolution", "Biology", "Advanced"},
		{"Protein synthesis", "Biology", "Advanced"},
		{"Respiration", "Biology", "Intermediate"},
		{"Chemical bond", "Chemistry", "Intermediate"},
		{"Periodic table", "Chemistry", "Beginner"},
		{"Organic chemistry", "Chemistry", "Advanced"},
		{"Acid-base reaction", "Chemistry", "Intermediate"},
		{"Oxidation", "Chemistry", "Intermediate"},
		{"Molecular orbital", "Chemistry", "Advanced"},
		{"Newton's laws of motion", "Physics", "Intermediate"},
		{"Electromagnetic radiation", "Physics", "Advanced"},
		{"Thermodynamics", "Physics", "Advanced"},
		{"Simple harmonic motion", "Physics", "Intermediate"},
		{"Quantum mechanics", "Physics", "Advanced"},
		{"Relativity", "Physics", "Advanced"},
		{"Wave-particle duality", "Physics", "Advanced"},
		{"Calculus", "Mathematics", "Advanced"},
		{"Linear algebra", "Mathematics", "Advanced"},
		{"Statistics", "Mathematics", "Intermediate"},
		{"Geometry", "Mathematics", "Beginner"},
		{"Trigonometry", "Mathematics", "Intermediate"},
		{"Differential equations", "Mathematics", "Advanced"},
		{"World War II", "History", "Intermediate"},
		{"Renaissance", "History", "Intermediate"},
		{"Industrial Revolution", "History", "Intermediate"},
		{"Cold War", "History", "Intermediate"},
		{"Ancient Rome", "History", "Beginner"},
		{"French Revolution", "History", "Intermediate"},
		{"Algorithm", "Computer Science", "Intermediate"},
		{"Data structure", "Computer Science", "Intermediate"},
		{"Machine learning", "Computer Science", "Advanced"},
		{"Database", "Computer Science", "Intermediate"},
		{"Operating system", "Computer Science", "Advanced"},
		{"Climate change", "Geography", "Intermediate"},
		{"Plate tectonics", "Geography", "Advanced"},
		{"Urbanization", "Geography", "Intermediate"},
		{"Supply and demand", "Economics", "Beginner"},
		{"Inflation", "Economics", "Intermediate"},
		{"Gross domestic product", "Economics", "Intermediate"},
		{"Market economy", "Economics", "Beginner"},
	}
}

func (dl *DatasetService) loadEncyclopedia(ctx context.Context) []vectorstore.Point {
	var points []vectorstore.Point
	id := uint64(encyclopediaIDOffset)

	for _, t := range encyclopediaTopics() {
		content, err := dl.fetchSummary(ctx, t.topic)
		if err != nil || content == "" {
			logger.Warn("skipping encyclopedia topic", "topic", t.topic, "error", err)
		} else {
			vector := dl.embedder.Embed(ctx, fmt.Sprintf("%s %s", t.topic, content))
			points = append(points, vectorstore.Point{
				ID:     id,
				Vector: vector,
				Payload: vectorstore.Payload{
					Title:      t.topic,
					Content:    content,
					Subject:    t.subject,
					Difficulty: t.difficulty,
					Source:     "Wikipedia",
					CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
				},
			})
			id++
		}

		// Throttle between summary fetches
		if dl.encDelay > 0 {
			select {
			case <-time.After(dl.encDelay):
			case <-ctx.Done():
				return points
			}
		}
	}
	return points
}

func (dl *DatasetService) fetchSummary(ctx context.Context, topic string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s", dl.encyclopedia, url.PathEscape(topic))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := dl.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summary fetch for %q: %s", topic, resp.Status)
	}

	var summary struct {
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return "", err
	}

	clean := strings.TrimSpace(strings.ReplaceAll(summary.Extract, "\n", " "))
	if len(clean) > 1500 {
		clean = clean[:1500] + "..."
	}
	return clean, nil
}

// educationalDataset is the JSON structured-file format.
type educationalDataset struct {
	Subjects []struct {
		Name   string `json:"name"`
		Topics []struct {
			Title      string   `json:"title"`
			Content    string   `json:"content"`
			Difficulty string   `json:"difficulty"`
			Keywords   []string `json:"keywords"`
		} `json:"topics"`
	} `json:"subjects"`
}

func (dl *DatasetService) loadStructuredFile(ctx context.Context, filePath string) ([]vectorstore.Point, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return dl.loadJSONFile(ctx, filePath)
	case ".xlsx":
		return dl.loadXLSXFile(ctx, filePath)
	default:
		return nil, fmt.Errorf("unsupported dataset file type: %s", filePath)
	}
}

func (dl *DatasetService) loadJSONFile(ctx context.Context, filePath string) ([]vectorstore.Point, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("dataset file not found: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var dataset educationalDataset
	if err := json.Unmarshal(raw, &dataset); err != nil {
		return nil, fmt.Errorf("invalid dataset file: %w", err)
	}

	var points []vectorstore.Point
	id := uint64(fileIDOffset)

	for _, subject := range dataset.Subjects {
		for _, topic := range subject.Topics {
			vector := dl.embedder.Embed(ctx, fmt.Sprintf("%s %s", topic.Title, topic.Content))
			points = append(points, vectorstore.Point{
				ID:     id,
				Vector: vector,
				Payload: vectorstore.Payload{
					Title:      topic.Title,
					Content:    topic.Content,
					Subject:    subject.Name,
					Difficulty: topic.Difficulty,
					Source:     "JSON Dataset",
					CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
				},
			})
			id++
		}
	}
	return points, nil
}

// loadXLSXFile reads rows of (Title, Content, Subject, Difficulty) from the
// first sheet, skipping the header row and incomplete rows.
func (dl *DatasetService) loadXLSXFile(ctx context.Context, filePath string) ([]vectorstore.Point, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("dataset file not found: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("dataset workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var points []vectorstore.Point
	id := uint64(fileIDOffset)

	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		title, content, subject, difficulty := row[0], row[1], row[2], row[3]
		if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
			logger.Warn("skipping incomplete dataset row", "row", i+1)
			continue
		}

		vector := dl.embedder.Embed(ctx, fmt.Sprintf("%s %s", title, content))
		points = append(points, vectorstore.Point{
			ID:     id,
			Vector: vector,
			Payload: vectorstore.Payload{
				Title:      title,
				Content:    content,
				Subject:    subject,
				Difficulty: difficulty,
				Source:     "XLSX Dataset",
				CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
			},
		})
		id++
	}
	return points, nil
}

func generatedCurriculum() []struct {
	subject string
	topics  []string
} {
	return []struct {
		subject string
		topics  []string
	}{
		{"Biology", []string{"Photosynthesis", "Cell Division", "Genetics", "Evolution", "Ecology", "Anatomy", "Biochemistry"}},
		{"Chemistry", []string{"Atomic Structure", "Chemical Bonding", "Stoichiometry", "Thermochemistry", "Organic Reactions", "Electrochemistry"}},
		{"Physics", []string{"Mechanics", "Electromagnetism", "Thermodynamics", "Quantum Physics", "Optics", "Nuclear Physics"}},
		{"Mathematics", []string{"Calculus", "Linear Algebra", "Statistics", "Differential Equations", "Number Theory", "Graph Theory"}},
		{"History", []string{"Ancient Civilizations", "Medieval Period", "Renaissance", "Industrial Revolution", "World Wars", "Modern Era"}},
		{"Computer Science", []string{"Algorithms", "Data Structures", "Machine Learning", "Databases", "Networks", "Security"}},
		{"Geography", []string{"Climate Systems", "Geological Processes", "Human Geography", "Cartography", "Environmental Science"}},
		{"Economics", []string{"Microeconomics", "Macroeconomics", "International Trade", "Economic Policy", "Market Structures"}},
	}
}

func (dl *DatasetService) loadGenerated(ctx context.Context) []vectorstore.Point {
	const systemPrompt = "You are an expert educator. Provide concise, accurate educational content for students. Focus on key concepts, definitions, and practical applications."

	var points []vectorstore.Point
	id := uint64(generatedIDOffset)

	for _, group := range generatedCurriculum() {
		for _, topic := range group.topics {
			prompt := fmt.Sprintf("Explain %s in %s in 2-3 paragraphs suitable for students. Include key concepts, important details, and why it matters. Make it educational and engaging.", topic, group.subject)

			content, err := dl.generator.CompleteOpts(ctx, systemPrompt, prompt, 0.7, 400)
			if err != nil || strings.TrimSpace(content) == "" {
				logger.Warn("skipping generated topic", "topic", topic, "error", err)
			} else {
				vector := dl.embedder.Embed(ctx, fmt.Sprintf("%s %s", topic, content))
				points = append(points, vectorstore.Point{
					ID:     id,
					Vector: vector,
					Payload: vectorstore.Payload{
						Title:      topic,
						Content:    content,
						Subject:    group.subject,
						Difficulty: generatedDifficulty(topic),
						Source:     "AI Generated",
						CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
					},
				})
				id++
			}

			// Rate limiting for the generative provider
			if dl.genDelay > 0 {
				select {
				case <-time.After(dl.genDelay):
				case <-ctx.Done():
					return points
				}
			}
		}
	}
	return points
}

func generatedDifficulty(topic string) string {
	beginner := []string{"Photosynthesis", "Atomic Structure", "Algebra", "Ancient Civilizations", "Supply and Demand"}
	advanced := []string{"Quantum Physics", "Differential Equations", "Machine Learning", "Biochemistry", "Electrochemistry"}

	for _, t := range beginner {
		if strings.Contains(strings.ToLower(topic), strings.ToLower(t)) {
			return "Beginner"
		}
	}
	for _, t := range advanced {
		if strings.Contains(strings.ToLower(topic), strings.ToLower(t)) {
			return "Advanced"
		}
	}
	return "Intermediate"
}

// loadComprehensive combines the encyclopedia corpus (failures tolerated)
// with a built-in offline corpus.
func (dl *DatasetService) loadComprehensive(ctx context.Context) []vectorstore.Point {
	points := dl.loadEncyclopedia(ctx)
	points = append(points, dl.loadBuiltin(ctx)...)
	return points
}

func (dl *DatasetService) loadBuiltin(ctx context.Context) []vectorstore.Point {
	builtin := []struct {
		title, content, subject, difficulty string
	}{
		{"Cell Structure", "Cells are the basic units of life, containing organelles like nucleus (controls cell activities), mitochondria (produces energy), and ribosomes (synthesize proteins).", "Biology", "Beginner"},
		{"DNA and Genetics", "DNA contains genetic instructions for all living organisms. Genes are segments of DNA that code for specific traits through protein synthesis.", "Biology", "Intermediate"},
		{"Evolution", "Evolution is the process by which species change over time through natural selection, genetic drift, and other mechanisms.", "Biology", "Advanced"},
		{"Ecosystems", "Ecosystems are communities of living organisms interacting with their physical environment through energy flow and nutrient cycling.", "Biology", "Intermediate"},
		{"Periodic Table", "The periodic table organizes elements by atomic number, revealing patterns in properties like electron configuration and chemical reactivity.", "Chemistry", "Beginner"},
		{"Organic Chemistry", "Organic chemistry studies carbon-containing compounds, which form the basis of all living organisms and many synthetic materials.", "Chemistry", "Advanced"},
		{"Acids and Bases", "Acids are proton donors while bases are proton acceptors. Their interactions determine pH and are crucial in biological systems.", "Chemistry", "Intermediate"},
		{"Electromagnetic Waves", "Electromagnetic waves are energy patterns that travel through space, including visible light, radio waves, and X-rays.", "Physics", "Advanced"},
		{"Thermodynamics", "Thermodynamics studies heat, work, and energy transfer, governing everything from engines to biological processes.", "Physics", "Advanced"},
		{"Simple Harmonic Motion", "Simple harmonic motion describes repetitive oscillations like pendulums and springs, fundamental to understanding waves.", "Physics", "Intermediate"},
		{"Calculus", "Calculus studies rates of change (derivatives) and accumulation (integrals), essential for physics and engineering applications.", "Mathematics", "Advanced"},
		{"Statistics", "Statistics involves collecting, analyzing, and interpreting numerical data to make informed decisions and predictions.", "Mathematics", "Intermediate"},
		{"Geometry", "Geometry studies shapes, sizes, and spatial relationships, forming the foundation for architecture and computer graphics.", "Mathematics", "Beginner"},
		{"Linear Algebra", "Linear algebra deals with vectors and matrices, crucial for computer graphics, machine learning, and engineering.", "Mathematics", "Advanced"},
		{"World War II", "World War II (1939-1945) was a global conflict that reshaped international relations and accelerated technological development.", "History", "Intermediate"},
		{"Renaissance", "The Renaissance (14th-17th centuries) marked a cultural rebirth in Europe, emphasizing art, science, and humanist philosophy.", "History", "Intermediate"},
		{"Industrial Revolution", "The Industrial Revolution transformed society through mechanization, urbanization, and mass production from 1760-1840.", "History", "Intermediate"},
		{"Algorithms", "Algorithms are step-by-step procedures for solving problems, fundamental to computer programming and efficiency.", "Computer Science", "Intermediate"},
		{"Data Structures", "Data structures organize and store data efficiently, including arrays, trees, and hash tables for optimal performance.", "Computer Science", "Intermediate"},
		{"Databases", "Databases store and manage structured information, using SQL queries and normalization for data integrity.", "Computer Science", "Advanced"},
		{"Artificial Intelligence", "AI creates systems that can perform tasks typically requiring human intelligence, including learning and decision-making.", "Computer Science", "Advanced"},
		{"Shakespeare", "William Shakespeare revolutionized English literature with complex characters and timeless themes in plays like Hamlet and Romeo and Juliet.", "Literature", "Intermediate"},
		{"Poetry Analysis", "Poetry uses literary devices like metaphor, rhythm, and imagery to convey emotions and ideas in concentrated artistic language.", "Literature", "Beginner"},
		{"Climate Change", "Climate change refers to long-term shifts in global weather patterns, primarily caused by human activities increasing greenhouse gases.", "Geography", "Intermediate"},
		{"Plate Tectonics", "Plate tectonics explains Earth's surface movements through the interaction of lithospheric plates, causing earthquakes and mountain formation.", "Geography", "Advanced"},
		{"Supply and Demand", "Supply and demand are fundamental economic forces that determine prices and resource allocation in market economies.", "Economics", "Beginner"},
		{"Inflation", "Inflation is the general increase in prices over time, affecting purchasing power and economic stability.", "Economics", "Intermediate"},
	}

	points := make([]vectorstore.Point, 0, len(builtin))
	id := uint64(builtinIDOffset)

	for _, item := range builtin {
		vector := dl.embedder.Embed(ctx, fmt.Sprintf("%s %s", item.title, item.content))
		points = append(points, vectorstore.Point{
			ID:     id,
			Vector: vector,
			Payload: vectorstore.Payload{
				Title:      item.title,
				Content:    item.content,
				Subject:    item.subject,
				Difficulty: item.difficulty,
				Source:     "Comprehensive Built-in",
				CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
			},
		})
		id++
	}
	return points
}
