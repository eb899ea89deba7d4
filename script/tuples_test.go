package script

import (
	"testing"

	"github.com/brequin/brequin/curriculum/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEntities(t *testing.T) {
	tuples := Match(`INSERT INTO entities (type, code, name, trace, temp_id) VALUES
(20, 'CE1', 'Don''t stop', 'trace', 'comp_1'),
(2, NULL, 'Criterio A', 'e', 'crit_a'),
(18, 7, 'Saber', 'e', 'know_1');`)

	require.Len(t, tuples.Entities, 3)
	assert.Empty(t, tuples.Skipped)

	assert.Equal(t, db.EntityTypeSpecificCompetency, tuples.Entities[0].Type)
	require.NotNil(t, tuples.Entities[0].Code)
	assert.Equal(t, "CE1", *tuples.Entities[0].Code)
	assert.Equal(t, "Don't stop", tuples.Entities[0].Name)
	assert.Equal(t, "comp_1", tuples.Entities[0].TempId)

	assert.Nil(t, tuples.Entities[1].Code)
	require.NotNil(t, tuples.Entities[2].Code)
	assert.Equal(t, "7", *tuples.Entities[2].Code)
}

func TestMatchRelations(t *testing.T) {
	tuples := Match(`INSERT INTO relaciones (origen_id, destino_id, tipo) VALUES
((SELECT id FROM entidades WHERE temp_id='comp_1'), (SELECT id FROM entidades WHERE temp_id = 'crit_a'), 'tiene_criterio'),
('comp_1', 'crit_b', 'tiene_criterio'),
((SELECT id FROM entidades WHERE temp_id='comp_1'), (SELECT id FROM entidades WHERE temp_id='know_1'));`)

	assert.Empty(t, tuples.Skipped)
	assert.Equal(t, []db.Relation{
		{SourceTempId: "comp_1", TargetTempId: "crit_a", Kind: "tiene_criterio"},
		{SourceTempId: "comp_1", TargetTempId: "crit_b", Kind: "tiene_criterio"},
		{SourceTempId: "comp_1", TargetTempId: "know_1"},
	}, tuples.Relations)
}

func TestMatchSkipsMalformedTuples(t *testing.T) {
	tuples := Match(`INSERT INTO entidades VALUES
(20, 'CE1', 'Sin temp id', 'x'),
(99, NULL, 'Tipo desconocido', 'x', 'bad_type'),
(-2, NULL, 'Negativo', 'x', 'negative_type'),
(2, NULL, '', 'x', 'no_name'),
(2, NULL, 'Vacío', 'x', ''),
(tipo, NULL, 'No numérico', 'x', 'word_type'),
(2, NULL, 'Válido', 'x', 'ok');
INSERT INTO relaciones VALUES
((SELECT id FROM entidades WHERE nombre='x'), (SELECT id FROM entidades WHERE temp_id='ok'), 'k'),
('solo');`)

	require.Len(t, tuples.Entities, 1)
	assert.Equal(t, "ok", tuples.Entities[0].TempId)
	assert.Empty(t, tuples.Relations)
	assert.Len(t, tuples.Skipped, 8)
	for _, skip := range tuples.Skipped {
		assert.NotEmpty(t, skip.Reason)
		assert.Positive(t, skip.Offset)
	}
}

func TestMatchToleratesGeneratedNoise(t *testing.T) {
	text := "Claro, aquí tienes el script (revisado):\n" +
		"```sql\n" +
		"INSERT INTO \"public\".\"entidades\" (tipo, codigo, nombre, traza, temp_id) VALUES\n" +
		"(20, 'CE1', 'Competencia', 't', 'comp_1')\n" +
		"INSERT INTO relaciones (origen, destino, tipo) VALUES\n" +
		"((SELECT id FROM entidades WHERE temp_id='comp_1'), (SELECT id FROM entidades WHERE temp_id='crit_a'), 'tiene_criterio')\n" +
		"-- faltan los criterios; (2, NULL, 'comentado', 'x', 'commented')\n" +
		"Espero que te sirva (no dudes en preguntar).\n" +
		"INSERT INTO entidades VALUES (2, NULL, 'Criterio A', 'e', 'crit_a');\n" +
		"```"

	tuples := Match(text)

	require.Len(t, tuples.Entities, 2)
	assert.Equal(t, "comp_1", tuples.Entities[0].TempId)
	assert.Equal(t, "crit_a", tuples.Entities[1].TempId)
	require.Len(t, tuples.Relations, 1)
	assert.Equal(t, "crit_a", tuples.Relations[0].TargetTempId)
}

func TestMatchIgnoresOtherTables(t *testing.T) {
	tuples := Match(`INSERT INTO asignaturas VALUES (20, NULL, 'No es entidad', 'x', 'a1');
(2, NULL, 'Fuera de sentencia', 'x', 'a2');
CREATE TABLE entidades (id SERIAL, tipo INT);`)

	assert.Empty(t, tuples.Entities)
	assert.Empty(t, tuples.Skipped)
}

func TestMatchUnterminatedTuple(t *testing.T) {
	tuples := Match(`INSERT INTO entidades VALUES (2, NULL, 'Roto', 'x', 'broken';
INSERT INTO entidades VALUES (2, NULL, 'Bien', 'x', 'fine');`)

	require.Len(t, tuples.Entities, 1)
	assert.Equal(t, "fine", tuples.Entities[0].TempId)
	require.Len(t, tuples.Skipped, 1)
	assert.Equal(t, "unterminated tuple", tuples.Skipped[0].Reason)
}

const validStatements = `INSERT INTO entidades VALUES (20, NULL, 'Comp', '', 'comp_1'), (2, NULL, 'Crit', '', 'crit_a');
INSERT INTO relaciones VALUES ('comp_1', 'crit_a', 'tiene_criterio');`

func TestMatchRecoversFromProse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		skipped []Skip
	}{
		{
			name:    "apostrophe in aside",
			text:    "Here is the script (it's the final version):\n" + validStatements,
			skipped: []Skip{{Offset: 22, Reason: "unterminated string literal"}},
		},
		{
			name:    "prose after unterminated tuple",
			text:    "INSERT INTO entidades VALUES (20, NULL, 'Roto', '', 'broken'\nThat's all for the first block.\n" + validStatements,
			skipped: []Skip{{Offset: 29, Reason: "unterminated tuple"}},
		},
		{
			name:    "unbalanced aside",
			text:    "Note (see below for details.\nHere's the script:\n" + validStatements,
			skipped: []Skip{{Offset: 33, Reason: "unterminated string literal"}},
		},
		{
			name:    "aside closed on the same line",
			text:    "Done (that's it) and here's more (see 'notes').\n" + validStatements,
			skipped: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuples := Match(tt.text)

			assert.Equal(t, []string{"comp_1", "crit_a"}, tempIds(tuples.Entities))
			assert.Equal(t, []db.Relation{{SourceTempId: "comp_1", TargetTempId: "crit_a", Kind: "tiene_criterio"}}, tuples.Relations)
			assert.Equal(t, tt.skipped, tuples.Skipped)

			items := EvaluableItems(tt.text)
			require.Len(t, items, 1)
			assert.Equal(t, "comp_1", items[0].Parent.TempId)
		})
	}
}

func TestMatchRejectsNegativeTypeCode(t *testing.T) {
	tuples := Match("INSERT INTO entidades VALUES (-2, NULL, 'Neg', 'x', 'neg');")

	assert.Empty(t, tuples.Entities)
	require.Len(t, tuples.Skipped, 1)
	assert.Contains(t, tuples.Skipped[0].Reason, "-2")
}
