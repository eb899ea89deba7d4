package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/brequin/brequin/curriculum/db"
	"github.com/brequin/brequin/curriculum/script"
)

// ErrNoEntities is returned when the model answered without a usable script.
var ErrNoEntities = errors.New("generated script contains no entities")

type ScriptInput struct {
	Subject    string
	Stage      string
	Notes      string
	Curriculum string
	// Document is attached instead of Curriculum when set.
	Document  []byte
	MediaType string
}

type typeCode struct {
	Code int
	Name string
}

func typeCodes() []typeCode {
	codes := make([]typeCode, 0, len(db.EntityTypes))
	for _, entityType := range db.EntityTypes {
		codes = append(codes, typeCode{Code: int(entityType), Name: entityType.String()})
	}
	return codes
}

const scriptSystem = `Eres un especialista en diseño curricular. Conviertes documentos curriculares en scripts SQL que otro programa analiza automáticamente. Responde solo con SQL.`

var scriptTemplate = template.Must(template.New("script").Parse(`Convierte el currículo{{if .Subject}} de {{.Subject}}{{end}}{{if .Stage}} ({{.Stage}}){{end}} en un script SQL.

Usa exclusivamente estos códigos de tipo:
{{range .Codes}}- {{.Code}}: {{.Name}}
{{end}}
Formato obligatorio:

INSERT INTO entidades (tipo, codigo, nombre, traza, temp_id) VALUES
(20, 'CE1', 'Texto de la competencia', 'fragmento original', 'ce_1'),
(2, NULL, 'Texto del criterio', 'fragmento original', 'crit_1_1');

INSERT INTO relaciones (origen_id, destino_id, tipo) VALUES
((SELECT id FROM entidades WHERE temp_id='ce_1'), (SELECT id FROM entidades WHERE temp_id='crit_1_1'), 'tiene_criterio');

Reglas:
- Cada temp_id es único y solo contiene letras, dígitos y guiones bajos.
- codigo es NULL cuando el documento no asigna código.
- Duplica las comillas simples dentro de los textos ('').
- Relaciona cada competencia específica o resultado de aprendizaje con sus criterios de evaluación, directamente o a través de descriptores e indicadores.
- Relaciona los saberes básicos con el bloque o la competencia que los incluye ('incluye_saber').
{{if .Notes}}
Indicaciones del docente:
{{.Notes}}
{{end}}{{if .Curriculum}}
Currículo:
{{.Curriculum}}
{{end}}`))

type artifactKind struct {
	Title        string
	Instructions string
}

var artifactKinds = map[string]artifactKind{
	"rubric": {
		Title:        "rúbrica",
		Instructions: "Para cada criterio de evaluación, describe cuatro niveles de logro (insuficiente, suficiente, notable, sobresaliente) con indicadores observables.",
	},
	"exam": {
		Title:        "prueba escrita",
		Instructions: "Redacta preguntas que evalúen cada criterio al menos una vez. Indica junto a cada pregunta el criterio evaluado y la puntuación.",
	},
	"learning_situation": {
		Title:        "situación de aprendizaje",
		Instructions: "Plantea un contexto cercano al alumnado, un reto final, la secuencia de actividades y la evaluación vinculada a los criterios.",
	},
	"didactic_unit": {
		Title:        "unidad didáctica",
		Instructions: "Incluye justificación, objetivos, saberes, temporalización por sesiones, metodología, atención a la diversidad y evaluación vinculada a los criterios.",
	},
	"activity": {
		Title:        "actividad de aula",
		Instructions: "Diseña una actividad de una sesión con objetivo, agrupamientos, materiales, desarrollo paso a paso y evidencia evaluable por cada criterio.",
	},
}

// ArtifactKinds returns the names accepted by ArtifactPrompt.
func ArtifactKinds() []string {
	return []string{"activity", "didactic_unit", "exam", "learning_situation", "rubric"}
}

const artifactSystem = `Eres un docente experto en programación didáctica. Escribe en español, en Markdown, sin preámbulos.`

var artifactTemplate = template.Must(template.New("artifact").Funcs(template.FuncMap{
	"code": func(code *string) string {
		if code == nil {
			return ""
		}
		return *code + " "
	},
}).Parse(`Elabora una {{.Kind.Title}}{{if .Subject}} para {{.Subject}}{{end}}.

{{.Kind.Instructions}}

Competencias y criterios que debe cubrir:
{{range .Items}}- {{code .Parent.Code}}{{.Parent.Name}}
{{range .Children}}  - {{code .Code}}{{.Name}}
{{end}}{{end}}{{if .Knowledge}}
Saberes básicos disponibles:
{{range .Knowledge}}- {{.}}
{{end}}{{end}}{{if .Notes}}
Indicaciones del docente:
{{.Notes}}
{{end}}`))

type ArtifactInput struct {
	Kind      string
	Subject   string
	Notes     string
	Items     []db.EvaluableItem
	Knowledge []string
}

func ScriptPrompt(input ScriptInput) (string, error) {
	var buffer bytes.Buffer
	data := struct {
		ScriptInput
		Codes []typeCode
	}{ScriptInput: input, Codes: typeCodes()}
	if len(input.Document) > 0 {
		data.Curriculum = ""
	}

	if err := scriptTemplate.Execute(&buffer, data); err != nil {
		return "", fmt.Errorf("failed to render script prompt: %w", err)
	}
	return buffer.String(), nil
}

func ArtifactPrompt(input ArtifactInput) (string, error) {
	kind, ok := artifactKinds[input.Kind]
	if !ok {
		return "", fmt.Errorf("unknown artifact kind %q (want one of %s)", input.Kind, strings.Join(ArtifactKinds(), ", "))
	}
	if len(input.Items) == 0 {
		return "", errors.New("no evaluable items to build the artifact from")
	}

	var buffer bytes.Buffer
	data := struct {
		ArtifactInput
		Kind artifactKind
	}{ArtifactInput: input, Kind: kind}

	if err := artifactTemplate.Execute(&buffer, data); err != nil {
		return "", fmt.Errorf("failed to render artifact prompt: %w", err)
	}
	return buffer.String(), nil
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n(.*?)```")

// ExtractSQL returns the contents of the fenced code blocks of a model
// response, or the whole response when it has none.
func ExtractSQL(response string) string {
	matches := fencePattern.FindAllStringSubmatch(response, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(response)
	}

	blocks := make([]string, 0, len(matches))
	for _, match := range matches {
		blocks = append(blocks, strings.TrimSpace(match[1]))
	}
	return strings.Join(blocks, "\n\n")
}

// Script asks the model for the SQL script of a curriculum. The response must
// contain at least one entity the parser can read.
func Script(ctx context.Context, generator Generator, input ScriptInput) (string, error) {
	prompt, err := ScriptPrompt(input)
	if err != nil {
		return "", err
	}

	response, err := generator.Generate(ctx, Request{
		System:    scriptSystem,
		Prompt:    prompt,
		Document:  input.Document,
		MediaType: input.MediaType,
	})
	if err != nil {
		return "", err
	}

	sql := ExtractSQL(response)
	if len(script.Match(sql).Entities) == 0 {
		return "", ErrNoEntities
	}
	return sql, nil
}

func Artifact(ctx context.Context, generator Generator, input ArtifactInput) (string, error) {
	prompt, err := ArtifactPrompt(input)
	if err != nil {
		return "", err
	}

	response, err := generator.Generate(ctx, Request{System: artifactSystem, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}
