package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderActivation(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	data := ActivationData{
		Name:  "Ana <admin>",
		Email: "a@example.com",
		Link:  "http://localhost:8000/account/activateemail/?email=a%40example.com&id=7",
	}

	text, err := engine.RenderText(ActivationText, data)
	require.NoError(t, err)
	assert.Contains(t, text, "Hola Ana <admin>,")
	assert.Contains(t, text, data.Link)

	html, err := engine.RenderHTML(ActivationHTML, data)
	require.NoError(t, err)
	assert.Contains(t, html, "Ana &lt;admin&gt;")
	assert.Contains(t, html, `href="http://localhost:8000/account/activateemail/?email=a%40example.com&amp;id=7"`)
}

func TestRenderOnNilEngine(t *testing.T) {
	var engine *Engine
	_, err := engine.RenderText(ActivationText, nil)
	assert.Error(t, err)
}
