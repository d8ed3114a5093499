// Package export writes stored notebooks back to disk as .ipynb files.
//
// File names are derived from the notebook URL: Colab links become
// colab_<file id>.ipynb and GitHub links become github_<org>_<repo>_<file>.
// Anything else falls back to notebook_<n>.ipynb. Content is written as
// indented JSON.
package export
