package dashboard

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// promptSampleSize bounds how many records are embedded in the prompt.
const promptSampleSize = 10

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a highly skilled earthquake safety and disaster preparedness expert. You will analyze earthquake data and provide a professional, well-structured overview and actionable advice to the user. The goal is to inform and empower the user to take appropriate safety measures.

The user is located at latitude: {{.Latitude}}, longitude: {{.Longitude}}.

Here's a summary of recent earthquake activity:
- Highest magnitude earthquake recorded in the past 5 years within the area: {{.Highest}}.
- Total number of earthquakes recorded: {{.Count}}.

Here's a sample of the earthquake data (limited to the first {{.SampleSize}} entries for brevity):
{{.Sample}}

Instructions for your response:

1. **Executive Summary: Seismic Risk Assessment** (Approximately 2 sentences):
    *   Begin with a clear and concise assessment of the overall seismic risk in the area ("low," "moderate," or "high"). Justify your assessment based on the provided data (highest magnitude and frequency).

2. **Data-Driven Analysis** (Approximately 3-4 bullet points):
    *   Analyze the key features of the earthquake data sample. Specifically, address the following:
        *   Magnitude Distribution: Describe the distribution of earthquake magnitudes (e.g., "primarily small tremors with a few moderate events," "a mix of small, moderate, and large earthquakes").
        *   Location Patterns: Identify any notable patterns or clustering in the earthquake locations (latitude/longitude). If no clear patterns are apparent, state that.
        *   Depth Range: Describe the range of earthquake depths. Is it relatively consistent or highly variable?

3. **Actionable Safety Recommendations** (Approximately 5-7 bullet points):
    *   Provide specific, actionable safety recommendations tailored to the identified seismic risk and earthquake patterns. Examples:
        *   "Due to the frequency of small tremors, focus on securing household items that could fall and cause injury."
        *   "Given the potential for larger earthquakes, ensure your home is structurally sound and consider retrofitting if necessary."
        *   "Prepare a comprehensive emergency kit that includes..."
        *   "Familiarize yourself with local evacuation routes and emergency protocols."
        *   "Know where your gas shutoff valve is and how to use it."
        *   "Participate in earthquake drills to practice safety procedures."

4. **Essential Earthquake Safety Tips** (Approximately 3-5 bullet points):
    *   Conclude with a few general earthquake safety tips that are always relevant, presented as bullet points. Examples:
        *   "Drop, Cover, and Hold On during an earthquake."
        *   "Secure heavy furniture and appliances to prevent them from falling."
        *   "Prepare an emergency supply kit with essential items."
        *   "Know your evacuation routes."

Formatting and Tone:

*   Use a professional and informative tone.
*   Organize the information logically and clearly.
*   Use bullet points to enhance readability.
*   Be concise and avoid unnecessary jargon.
*   Assume the user has limited knowledge of earthquake science.

Keep the response under {{.MaxTokens}} tokens.

Please use markdown formatting for better readability. Specifically, use paragraph breaks and bullet points where appropriate.`))

type promptData struct {
	Latitude   string
	Longitude  string
	Highest    string
	Count      int
	SampleSize int
	Sample     string
	MaxTokens  int
}

// BuildPrompt builds the advisory prompt for a location and its area data.
func BuildPrompt(lat, lon float64, data domain.AreaData, maxTokens int) (string, error) {
	sample := data.Earthquakes
	if len(sample) > promptSampleSize {
		sample = sample[:promptSampleSize]
	}
	if sample == nil {
		sample = []domain.EarthquakeRecord{}
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", err
	}

	highest := "null"
	if data.HighestMagnitude != nil {
		highest = domain.FormatFloat(*data.HighestMagnitude)
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, promptData{
		Latitude:   domain.FormatFloat(lat),
		Longitude:  domain.FormatFloat(lon),
		Highest:    highest,
		Count:      len(data.Earthquakes),
		SampleSize: promptSampleSize,
		Sample:     string(sampleJSON),
		MaxTokens:  maxTokens,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
