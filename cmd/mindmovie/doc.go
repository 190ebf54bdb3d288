// Command mindmovie turns a guided goal interview into a narrated vision
// video.
//
// `mindmovie generate` runs the whole pipeline and resumes wherever the last
// run stopped. The stage commands (questionnaire, render, compile) run one
// step at a time, `status` and `history` inspect the build directory, and
// `config --check` verifies credentials and the ffmpeg toolchain.
package main
