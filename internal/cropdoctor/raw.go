package cropdoctor

import (
	"math"
	"time"
)

type rawSuggestion struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ScientificName string  `json:"scientific_name"`
	Probability    float64 `json:"probability"`
	Details        struct {
		CommonNames []string   `json:"common_names"`
		Description string     `json:"description"`
		Cause       string     `json:"cause"`
		Treatment   *Treatment `json:"treatment"`
	} `json:"details"`
}

type rawIdentification struct {
	AccessToken string  `json:"access_token"`
	Status      string  `json:"status"`
	Created     float64 `json:"created"`
	Result      struct {
		IsPlant struct {
			Probability float64 `json:"probability"`
			Binary      bool    `json:"binary"`
		} `json:"is_plant"`
		IsHealthy *struct {
			Probability float64 `json:"probability"`
		} `json:"is_healthy"`
		Crop struct {
			Suggestions []rawSuggestion `json:"suggestions"`
		} `json:"crop"`
		Disease struct {
			Suggestions []rawSuggestion `json:"suggestions"`
		} `json:"disease"`
	} `json:"result"`
}

func (r rawIdentification) identification() *Identification {
	out := &Identification{
		AccessToken: r.AccessToken,
		Status:      r.Status,
		IsPlant:     r.Result.IsPlant.Binary,
		PlantScore:  r.Result.IsPlant.Probability,
		Crops:       suggestions(r.Result.Crop.Suggestions),
		Diseases:    suggestions(r.Result.Disease.Suggestions),
	}
	if r.Created > 0 {
		sec, frac := math.Modf(r.Created)
		out.CreatedAt = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	if r.Result.IsHealthy != nil {
		p := r.Result.IsHealthy.Probability
		out.HealthyChance = &p
	}
	return out
}

func suggestions(in []rawSuggestion) []Suggestion {
	out := make([]Suggestion, 0, len(in))
	for _, s := range in {
		out = append(out, Suggestion{
			ID:             s.ID,
			Name:           s.Name,
			ScientificName: s.ScientificName,
			Probability:    s.Probability,
			CommonNames:    s.Details.CommonNames,
			Description:    s.Details.Description,
			Cause:          s.Details.Cause,
			Treatment:      s.Details.Treatment,
		})
	}
	return out
}
