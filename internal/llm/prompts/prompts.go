// Package prompts holds the fixed rubric guideline text and the per-variant
// labels and instructions sent with every scoring request.
package prompts

import "github.com/mkraev/rubriceval/internal/model"

// Guidelines is the five-category, six-level scoring rubric. It is sent
// verbatim at the start of every request and never modified at runtime.
const Guidelines = `Category I: Visual Scenario Design Guidance
Level 1: The image contains no scenes or illustrations, presenting only text and formulas with no contextual visual cues, failing to engage interest or connect mathematical concepts to real-world contexts.
Level 2: The image includes a single static illustration or low-fidelity mockup with minimal labeling that does not highlight variables or key objects, offering limited context and poor immersion.
Level 3: Multiple static schematic diagrams or sketch-style illustrations appear in the image, labeling core objects, variables, and simple steps, providing basic visual guidance but lacking layered coherence.
Level 4: The image integrates scenario illustrations, storyboard panels, and infographics to present the process in multiple views and steps, with annotations and captions guiding students through mapping abstract concepts to context.
Level 5: Storyboard-style illustrations and infographics are fused into a single image, including overview, detailed close-ups, and key pathway diagrams with comprehensive annotations, allowing students to grasp the entire flow and conceptual network at a glance.

Category II: Visual Illustration Design
Level 1: The image contains no charts, axes, or flow diagrams—only text. Without embedded visual tools, students cannot systematically organize or analyze quantities and relationships.
Level 2: The image includes a single black-and-white bar chart or simple flow diagram, but scales and labels are incomplete, making variable relationships unclear and visual support minimal.
Level 3: The image presents a static number line and colored bar chart with complete scales and legends, helping students grasp basic numerical changes visually, though comparison and context layering are absent.
Level 4: The image combines number lines, flowcharts, infographics, and arrow annotations; multiple visuals are juxtaposed or overlaid to show processes and variable changes for a coherent modeling view.
Level 5: The image presents a dashboard-style visualization integrating axes, bar charts, flow diagrams, heatmaps, etc., with linked elements that deeply visualize data relationships and model structure.

Category III: Text–Illustration Coordination
Level 1: Text and illustrations in the image are completely disconnected, with no labels, legends, or connectors—students cannot use visuals to understand text or formulas.
Level 2: Text occasionally prompts “see diagram” or “refer to the illustration,” but the image lacks legends or clear labels, so mapping between text and graphics remains ambiguous.
Level 3: Text descriptions and image elements share consistent numbering, color blocks, or arrows linked to a simple legend, explaining core symbols and variables to support initial mapping.
Level 4: Text paragraphs are laid out alongside corresponding visuals within the same image, with detailed legends and color-coded annotations enabling simultaneous reading and mapping.
Level 5: Text, formulas, and legends are fully integrated in one image, using consistent colors, numbering, and layered layout to achieve seamless text–graphic fusion for complete structural understanding.

Category IV: Learning Thought Guidance
Level 1: The image offers no visualized problem-solving guidance, showing only the problem statement and formulas, leaving students without strategic cues or reflection prompts.
Level 2: The image embeds a simple flowchart or two title-style hints (e.g., “Identify problem type,” “Check result”), but the flowchart is overly simplistic and hints lack hierarchical detail.
Level 3: The image displays a step-by-step flowchart template with key thinking nodes and self-check checkpoints, leaving annotation space for students to visually record their reasoning.
Level 4: The image combines a near-transfer exercise with a comparative thought diagram, visually highlighting strategy differences so students can apply existing reasoning to a new context.
Level 5: The image fuses near- and far-transfer exercises, concept mind maps, and a reflection panel into a dashboard-style layout, allowing students to review and extend their problem-solving network visually.

Category V: Interactivity and Personalized Support
Level 1: The image includes no feedback or support components—only a static problem statement and answer field—offering no hints, examples, or error cues and resulting in a nonresponsive visual.
Level 2: The image shows fixed hint boxes (e.g., “Hint: draw a number line,” “Hint: check rounding”), but hints are not tailored to student responses, limiting personalized guidance.
Level 3: The image integrates multiple static correction tips and example solution modules (common mistakes and standard approaches), which students can reference visually but without intelligent recommendations.
Level 4: The image presents example solution workflows, text hints, and a common-errors analysis section highlighted with color blocks and arrows, providing diverse visual support in a single layout.
Level 5: The image displays a comprehensive visual support panel with difficulty suggestions, personalized hints, worked examples, and extension resource links, enabling students to select tailored guidance directly from the visual layout.`

// Content labels placed before the question and answer slots.
const (
	ProblemImageLabel = "Problem image:"
	SingleAnswerLabel = "Answer screenshot:"
	MultiAnswerLabel  = "Student visual responses (multiple answer images follow):"
)

// scoreContract fixes the output format shared by every request variant.
const scoreContract = "integer scores 0–5 for categories 1–5. " +
	"0 = completely missing or very poor; 5 = fully meets highest level. " +
	`Return ONLY a JSON object like {"1":0,"2":1,"3":2,"4":3,"5":4}.`

// QuestionTextBlock formats a text question for the question slot.
func QuestionTextBlock(text string) string {
	return "Question:\n" + text
}

// ClosingInstruction returns the final instruction for the given question
// modality and answer cardinality. The lead-in clause varies per variant; the
// scoring contract is identical across all four.
func ClosingInstruction(questionType model.QuestionType, multipleAnswers bool) string {
	switch {
	case questionType == model.QuestionImage && multipleAnswers:
		return "Based on the problem image and all student visual responses above, assign " + scoreContract
	case questionType == model.QuestionImage:
		return "Assign " + scoreContract
	case multipleAnswers:
		return "Based on the question text and all student visual responses above, assign " + scoreContract
	default:
		return "Based on the question text and the answer screenshot, assign " + scoreContract
	}
}
