package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brequin/brequin/curriculum/db"
)

type Table int

const (
	TableNone Table = iota
	TableEntities
	TableRelations
	TableOther
)

// Generation prompts have used both the English and the Spanish table names.
var tableNames = map[string]Table{
	"entities":   TableEntities,
	"entity":     TableEntities,
	"entidades":  TableEntities,
	"entidad":    TableEntities,
	"relations":  TableRelations,
	"relation":   TableRelations,
	"relaciones": TableRelations,
	"relacion":   TableRelations,
	"relación":   TableRelations,
}

func classifyTable(name string) Table {
	if table, ok := tableNames[strings.ToLower(name)]; ok {
		return table
	}
	return TableOther
}

// Skip records a tuple that was dropped instead of failing the parse.
type Skip struct {
	Offset int    `json:"offset" yaml:"offset"`
	Reason string `json:"reason" yaml:"reason"`
}

type Tuples struct {
	Entities  []db.Entity
	Relations []db.Relation
	Skipped   []Skip
}

type group struct {
	offset int
	fields [][]Token
}

// readGroup collects the comma separated fields of the parenthesised group
// opening at tokens[start]. Nested groups stay inside their field. A group cut
// short by a statement boundary is returned unclosed and the boundary token is
// left for the caller.
func readGroup(tokens []Token, start int) (group, int, bool) {
	g := group{offset: tokens[start].Offset}
	var field []Token
	depth := 0

	for pos := start; ; pos++ {
		token := tokens[pos]
		switch token.Type {
		case TokenEnd, TokenSemicolon:
			g.fields = append(g.fields, field)
			return g, pos, false
		case TokenWord:
			if strings.EqualFold(token.Value, "INSERT") {
				g.fields = append(g.fields, field)
				return g, pos, false
			}
		case TokenLParen:
			depth++
			if depth == 1 {
				continue
			}
		case TokenRParen:
			depth--
			if depth == 0 {
				g.fields = append(g.fields, field)
				return g, pos + 1, true
			}
		case TokenComma:
			if depth == 1 {
				g.fields = append(g.fields, field)
				field = nil
				continue
			}
		}
		field = append(field, token)
	}
}

const brokenString = "unterminated string literal"

// brokenStrings lists the abandoned literals inside a group nobody matches.
func brokenStrings(g group) []Skip {
	var skips []Skip
	for _, field := range g.fields {
		for _, token := range field {
			if token.Type == TokenBroken {
				skips = append(skips, Skip{Offset: token.Offset, Reason: brokenString})
			}
		}
	}
	return skips
}

func scalar(field []Token) (Token, bool) {
	if len(field) != 1 {
		return Token{}, false
	}
	return field[0], true
}

func isNull(token Token) bool {
	return token.Type == TokenWord && strings.EqualFold(token.Value, "NULL")
}

// matchEntity reads (type, code|NULL, 'name', 'trace', 'temp_id').
func matchEntity(g group) (db.Entity, error) {
	if len(g.fields) < 5 {
		return db.Entity{}, fmt.Errorf("entity tuple has %d fields, want 5", len(g.fields))
	}

	typeToken, ok := scalar(g.fields[0])
	if !ok || typeToken.Type != TokenNumber {
		return db.Entity{}, fmt.Errorf("entity type is not a number")
	}
	code, err := strconv.Atoi(typeToken.Value)
	if err != nil {
		return db.Entity{}, fmt.Errorf("entity type %q: %w", typeToken.Value, err)
	}
	entityType, err := db.ParseEntityType(code)
	if err != nil {
		return db.Entity{}, err
	}

	entity := db.Entity{Type: entityType}

	codeToken, ok := scalar(g.fields[1])
	switch {
	case ok && isNull(codeToken):
	case ok && (codeToken.Type == TokenString || codeToken.Type == TokenNumber):
		value := codeToken.Value
		entity.Code = &value
	default:
		return db.Entity{}, fmt.Errorf("entity code is neither a literal nor NULL")
	}

	nameToken, ok := scalar(g.fields[2])
	if !ok || nameToken.Type != TokenString || strings.TrimSpace(nameToken.Value) == "" {
		return db.Entity{}, fmt.Errorf("entity name is missing")
	}
	entity.Name = nameToken.Value

	tempIdToken, ok := scalar(g.fields[4])
	if !ok || tempIdToken.Type != TokenString || strings.TrimSpace(tempIdToken.Value) == "" {
		return db.Entity{}, fmt.Errorf("entity %q has no temp_id", entity.Name)
	}
	entity.TempId = tempIdToken.Value

	return entity, nil
}

// tempIdReference accepts either a bare 'temp' literal or a sub-select
// containing temp_id = 'temp'.
func tempIdReference(field []Token) string {
	if token, ok := scalar(field); ok && token.Type == TokenString {
		return token.Value
	}
	for pos := 0; pos+2 < len(field); pos++ {
		if field[pos].Type == TokenWord && strings.EqualFold(field[pos].Value, "temp_id") &&
			field[pos+1].Type == TokenEquals && field[pos+2].Type == TokenString {
			return field[pos+2].Value
		}
	}
	return ""
}

func matchRelation(g group) (db.Relation, error) {
	if len(g.fields) < 2 {
		return db.Relation{}, fmt.Errorf("relation tuple has %d fields, want 3", len(g.fields))
	}

	relation := db.Relation{
		SourceTempId: tempIdReference(g.fields[0]),
		TargetTempId: tempIdReference(g.fields[1]),
	}
	if relation.SourceTempId == "" || relation.TargetTempId == "" {
		return db.Relation{}, fmt.Errorf("relation endpoints do not reference a temp_id")
	}

	if len(g.fields) > 2 {
		if kindToken, ok := scalar(g.fields[2]); ok && kindToken.Type == TokenString {
			relation.Kind = kindToken.Value
		}
	}

	return relation, nil
}

// Match extracts entity and relation tuples from generated SQL. Statements are
// recognised by their INSERT INTO table, and every parenthesised group inside
// them is matched independently, so stray prose, missing semicolons and broken
// tuples only cost the tuples they touch.
func Match(text string) Tuples {
	var tuples Tuples
	tokens := Tokenize(text)

	table := TableNone
	sawValues := false

	for pos := 0; tokens[pos].Type != TokenEnd; {
		token := tokens[pos]

		switch {
		case token.Type == TokenWord && strings.EqualFold(token.Value, "INSERT"):
			pos++
			if tokens[pos].Type != TokenWord || !strings.EqualFold(tokens[pos].Value, "INTO") {
				table = TableNone
				continue
			}
			pos++

			name := ""
			for tokens[pos].Type == TokenWord && !strings.EqualFold(tokens[pos].Value, "VALUES") {
				name = tokens[pos].Value
				pos++
			}
			table = classifyTable(name)
			sawValues = false

		case token.Type == TokenWord && strings.EqualFold(token.Value, "VALUES"):
			sawValues = true
			pos++

		case token.Type == TokenSemicolon:
			table = TableNone
			pos++

		case token.Type == TokenBroken:
			tuples.Skipped = append(tuples.Skipped, Skip{Offset: token.Offset, Reason: brokenString})
			pos++

		case token.Type == TokenLParen:
			g, next, closed := readGroup(tokens, pos)
			pos = next
			if table != TableEntities && table != TableRelations {
				tuples.Skipped = append(tuples.Skipped, brokenStrings(g)...)
				continue
			}

			// Without a VALUES keyword the group may be a column list, so a
			// mismatch there is not worth reporting.
			report := sawValues
			if !closed {
				if report {
					tuples.Skipped = append(tuples.Skipped, Skip{Offset: g.offset, Reason: "unterminated tuple"})
				}
				continue
			}

			if table == TableEntities {
				entity, err := matchEntity(g)
				if err != nil {
					if report {
						tuples.Skipped = append(tuples.Skipped, Skip{Offset: g.offset, Reason: err.Error()})
					}
					continue
				}
				tuples.Entities = append(tuples.Entities, entity)
			} else {
				relation, err := matchRelation(g)
				if err != nil {
					if report {
						tuples.Skipped = append(tuples.Skipped, Skip{Offset: g.offset, Reason: err.Error()})
					}
					continue
				}
				tuples.Relations = append(tuples.Relations, relation)
			}

		default:
			pos++
		}
	}

	return tuples
}
