package prompt

// Builtin templates mirror the six processing modes the result window offers:
// plain translation, code explanation, general explanation, combined
// translate+explain, technical documents and UI text.
func builtinTemplates() []Template {
	return []Template{
		{
			Name:        "translate",
			Description: "Translate text into the target language",
			Category:    "translation",
			Variables:   []string{"text", "target_language"},
			Body: `请将以下文本翻译为{target_language}，要求：
1. 保持原文的格式和结构
2. 翻译要准确、自然、流畅
3. 专业术语要使用标准译法
4. 如果原文包含多种语言，请分别翻译
5. 不要添加任何解释或说明，只返回翻译结果

原文：
{text}

翻译结果：`,
		},
		{
			Name:        "code_explain",
			Description: "Explain what a code snippet does",
			Category:    "code",
			Variables:   []string{"text", "target_language"},
			Body: `请分析并解释以下代码，要求：
1. 说明代码的主要功能和目的
2. 解释关键算法和逻辑
3. 指出可能的改进点或潜在问题
4. 如果有错误，请指出并提供修正建议
5. 使用{target_language}回答

代码：
{text}

代码解释：`,
		},
		{
			Name:        "general_explain",
			Description: "Explain and analyze arbitrary text",
			Category:    "explanation",
			Variables:   []string{"text", "target_language"},
			Body: `请分析并解释以下内容，要求：
1. 首先判断内容的类型（如：技术文档、用户界面、错误信息等）
2. 解释主要含义和关键信息
3. 如果是技术内容，请解释相关概念
4. 如果是界面文本，请说明功能和操作
5. 如果是错误信息，请解释原因和解决方法
6. 使用{target_language}回答

内容：
{text}

解释分析：`,
		},
		{
			Name:        "translate_explain",
			Description: "Translate, then explain the text",
			Category:    "hybrid",
			Variables:   []string{"text", "target_language"},
			Body: `请对以下文本进行翻译和解释，要求：

第一步：翻译
将文本翻译为{target_language}，保持原有格式

第二步：解释
解释文本的含义、用途或背景信息

原文：
{text}

翻译：


解释：`,
		},
		{
			Name:        "tech_doc",
			Description: "Analyze technical documents and API docs",
			Category:    "technical",
			Variables:   []string{"text", "target_language"},
			Body: `请分析以下技术文档内容，要求：
1. 如果是API文档，解释接口功能、参数和返回值
2. 如果是配置文件，解释各项配置的作用
3. 如果是错误日志，分析错误原因和解决方案
4. 如果是命令行输出，解释执行结果的含义
5. 提供实用的使用建议
6. 使用{target_language}回答

技术文档：
{text}

分析结果：`,
		},
		{
			Name:        "ui_text",
			Description: "Translate and explain user interface text",
			Category:    "ui",
			Variables:   []string{"text", "target_language"},
			Body: `请分析以下用户界面文本，要求：
1. 翻译所有界面元素为{target_language}
2. 解释各个界面元素的功能
3. 说明可能的操作流程
4. 如果有错误提示，解释错误原因
5. 提供使用建议

界面文本：
{text}

翻译和说明：`,
		},
	}
}
