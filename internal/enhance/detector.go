// Package enhance implements the document enhancement pipeline: type
// detection, entity extraction, semantic chunking, and metadata
// enrichment. It runs only over externally uploaded documents; curated
// rows never enter this package.
package enhance

import (
	"strings"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
)

// Scoring weights for type detection. Filename matches are stronger
// signals than content keywords; longer patterns and multi-word phrases
// earn a specificity bonus.
const (
	filenameBaseWeight   = 1.0
	filenameLengthBonus  = 0.1 // per pattern character beyond the fourth
	contentBaseWeight    = 0.4
	contentPhraseBonus   = 0.2 // per extra word in the matched phrase
	maxFilenameLenBonus  = 0.8
)

// typeSignals holds the detection patterns for one document type.
type typeSignals struct {
	docType          models.DocumentType
	filenamePatterns []string
	contentKeywords  []string
}

// signalTable is ordered: earlier entries win score ties.
var signalTable = []typeSignals{
	{
		docType:          models.TypeFinancial,
		filenamePatterns: []string{"despesa", "expense", "financ", "orcamento", "budget", "balanc"},
		contentKeywords:  []string{"r$", "despesas", "valor total", "pagamento", "saldo", "fluxo de caixa"},
	},
	{
		docType:          models.TypeInvoice,
		filenamePatterns: []string{"invoice", "fatura", "nota_fiscal", "nf-"},
		contentKeywords:  []string{"nota fiscal", "cnpj", "fatura", "vencimento"},
	},
	{
		docType:          models.TypeReceipt,
		filenamePatterns: []string{"recibo", "receipt", "comprovante"},
		contentKeywords:  []string{"recebi de", "recibo", "comprovante de pagamento"},
	},
	{
		docType:          models.TypeContract,
		filenamePatterns: []string{"contrato", "contract", "agreement", "acordo"},
		contentKeywords:  []string{"contratante", "contratada", "das partes", "vigencia", "rescisao", "clausula"},
	},
	{
		docType:          models.TypeReport,
		filenamePatterns: []string{"relatorio", "report"},
		contentKeywords:  []string{"resumo executivo", "executive summary", "conclusao", "analise"},
	},
	{
		docType:          models.TypePresentation,
		filenamePatterns: []string{"apresentacao", "presentation", "slides"},
		contentKeywords:  []string{"agenda", "proximos passos"},
	},
}

// TypeDetector scores filename patterns and content keywords to classify
// a document.
type TypeDetector struct {
	cfg config.TypeDetectionConfig
}

// NewTypeDetector creates a detector with the given configuration.
func NewTypeDetector(cfg config.TypeDetectionConfig) *TypeDetector {
	return &TypeDetector{cfg: cfg}
}

// Detect classifies a document from its filename and content. The type
// with the highest combined score wins; when the winning confidence is
// below the configured threshold the type defaults to general.
func (d *TypeDetector) Detect(filename, content string) (models.DocumentType, float64) {
	lowerName := normalize(filename)
	lowerContent := normalize(content)

	best := models.TypeGeneral
	bestScore := 0.0

	for _, sig := range signalTable {
		score := 0.0

		if d.cfg.UseFilename && lowerName != "" {
			for _, pat := range sig.filenamePatterns {
				if strings.Contains(lowerName, pat) {
					bonus := float64(len(pat)-4) * filenameLengthBonus
					if bonus < 0 {
						bonus = 0
					}
					if bonus > maxFilenameLenBonus {
						bonus = maxFilenameLenBonus
					}
					score += filenameBaseWeight + bonus
				}
			}
		}

		if d.cfg.UseContent && lowerContent != "" {
			for _, kw := range sig.contentKeywords {
				if strings.Contains(lowerContent, kw) {
					words := strings.Count(kw, " ")
					score += contentBaseWeight + float64(words)*contentPhraseBonus
				}
			}
		}

		// Strictly-greater keeps the table-order tie break.
		if score > bestScore {
			bestScore = score
			best = sig.docType
		}
	}

	confidence := bestScore / (bestScore + 1.0)
	if confidence < d.cfg.ConfidenceThreshold {
		return models.TypeGeneral, confidence
	}
	return best, confidence
}

// normalize lowercases and strips accents common in Portuguese sources so
// pattern tables can stay ASCII.
func normalize(s string) string {
	s = strings.ToLower(s)
	replacer := strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "ô", "o", "õ", "o",
		"ú", "u", "ü", "u",
		"ç", "c",
	)
	return replacer.Replace(s)
}
